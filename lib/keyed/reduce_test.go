package keyed

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type counter struct {
	Count int
}

func counterReducer(slice any, action Action) any {
	c, _ := slice.(counter)
	switch action.Type {
	case "INCREASE":
		return counter{Count: c.Count + 1}
	case "DECREASE":
		return counter{Count: c.Count - 1}
	}
	return c
}

func mustReduce(state State, op Op) State {
	next, err := Reduce(state, op)
	Expect(err).NotTo(HaveOccurred())
	return next
}

var _ = Describe("Reduce", func() {
	var state State

	BeforeEach(func() {
		state = Empty()
	})

	Context("mount", func() {
		It("should create the slice on first mount", func() {
			state = mustReduce(state, Mount("local", counter{Count: 13}))

			Expect(state.RefCount("local")).To(Equal(1))
			v, ok := state.Slice("local")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(counter{Count: 13}))
		})

		It("should keep the first mounter's value", func() {
			state = mustReduce(state, Mount("local", counter{Count: 13}))
			state = mustReduce(state, Mount("local", counter{Count: 99}))

			Expect(state.RefCount("local")).To(Equal(2))
			v, _ := state.Slice("local")
			Expect(v).To(Equal(counter{Count: 13}))
		})

		It("should allow a nil initial value", func() {
			state = mustReduce(state, Mount("nil", nil))

			Expect(state.Has("nil")).To(BeTrue())
			v, ok := state.Slice("nil")
			Expect(ok).To(BeTrue())
			Expect(v).To(BeNil())
		})
	})

	Context("unmount", func() {
		It("should decrement without touching the slice", func() {
			state = mustReduce(state, Mount("local", counter{Count: 1}))
			state = mustReduce(state, Mount("local", counter{}))
			state = mustReduce(state, Unmount("local"))

			Expect(state.RefCount("local")).To(Equal(1))
			v, _ := state.Slice("local")
			Expect(v).To(Equal(counter{Count: 1}))
		})

		It("should remove the key when the last reference goes", func() {
			state = mustReduce(state, Mount("local", counter{}))
			state = mustReduce(state, Unmount("local"))

			Expect(state.Has("local")).To(BeFalse())
			_, ok := state.Slice("local")
			Expect(ok).To(BeFalse())
			Expect(state.Len()).To(Equal(0))
		})

		It("should fail fast on a key that is not mounted", func() {
			state = mustReduce(state, Mount("other", counter{}))

			next, err := Reduce(state, Unmount("local"))
			Expect(err).To(MatchError(ErrNotMounted))
			Expect(next.Keys()).To(Equal([]string{"other"}))
		})

		It("should recreate a fresh slice after the key was destroyed", func() {
			state = mustReduce(state, Mount("local", counter{Count: 1}))
			state = mustReduce(state, Unmount("local"))
			state = mustReduce(state, Mount("local", counter{Count: 2}))

			v, _ := state.Slice("local")
			Expect(v).To(Equal(counter{Count: 2}))
		})
	})

	Context("apply", func() {
		It("should run the private reducer on the slice", func() {
			state = mustReduce(state, Mount("local", counter{Count: 13}))
			state = mustReduce(state, Apply("local", counterReducer, Action{Type: "INCREASE"}))
			v, _ := state.Slice("local")
			Expect(v).To(Equal(counter{Count: 14}))

			state = mustReduce(state, Apply("local", counterReducer, Action{Type: "DECREASE"}))
			state = mustReduce(state, Apply("local", counterReducer, Action{Type: "DECREASE"}))
			v, _ = state.Slice("local")
			Expect(v).To(Equal(counter{Count: 12}))
		})

		It("should not affect other keys", func() {
			state = mustReduce(state, Mount("a", counter{Count: 1}))
			state = mustReduce(state, Mount("b", counter{Count: 5}))
			state = mustReduce(state, Apply("a", counterReducer, Action{Type: "INCREASE"}))

			b, _ := state.Slice("b")
			Expect(b).To(Equal(counter{Count: 5}))
			Expect(state.RefCount("b")).To(Equal(1))
		})

		It("should fail fast on a key that is not mounted", func() {
			_, err := Reduce(state, Apply("local", counterReducer, Action{Type: "INCREASE"}))
			Expect(err).To(MatchError(ErrNotMounted))
		})

		It("should reject a nil reducer", func() {
			state = mustReduce(state, Mount("local", counter{}))
			_, err := Reduce(state, Apply("local", nil, Action{}))
			Expect(err).To(MatchError(ErrNilReducer))
		})
	})

	It("should reject unknown operations", func() {
		_, err := Reduce(state, Op{Kind: OpKind(42), Key: "x"})
		Expect(err).To(MatchError(ErrUnknownOp))
	})

	It("should never mutate the input snapshot", func() {
		before := mustReduce(state, Mount("local", counter{Count: 1}))
		_ = mustReduce(before, Mount("local", counter{}))
		_ = mustReduce(before, Apply("local", counterReducer, Action{Type: "INCREASE"}))
		_ = mustReduce(before, Unmount("local"))

		Expect(before.RefCount("local")).To(Equal(1))
		v, _ := before.Slice("local")
		Expect(v).To(Equal(counter{Count: 1}))
	})

	It("should be deterministic", func() {
		ops := []Op{
			Mount("a", counter{}),
			Apply("a", counterReducer, Action{Type: "INCREASE"}),
			Mount("b", counter{Count: 3}),
			Mount("a", counter{Count: 100}),
			Unmount("b"),
		}
		run := func() State {
			s := Empty()
			for _, op := range ops {
				s = mustReduce(s, op)
			}
			return s
		}
		Expect(run()).To(Equal(run()))
	})

	Describe("random mount/unmount sequences", func() {
		It("should track refcounts and slice presence", func() {
			rng := rand.New(rand.NewSource(7))
			keys := []string{"a", "b", "c"}
			expected := map[string]int{}

			for i := 0; i < 500; i++ {
				key := keys[rng.Intn(len(keys))]
				if expected[key] > 0 && rng.Intn(2) == 0 {
					state = mustReduce(state, Unmount(key))
					expected[key]--
				} else {
					state = mustReduce(state, Mount(key, counter{Count: i}))
					expected[key]++
				}

				for _, k := range keys {
					Expect(state.RefCount(k)).To(Equal(expected[k]))
					_, ok := state.Slice(k)
					Expect(ok).To(Equal(expected[k] > 0))
				}
			}
		})

		It("should not interfere across keys", func() {
			rng := rand.New(rand.NewSource(11))
			var onA, onB []Op
			var interleaved []Op
			mountedA, mountedB := 0, 0

			for i := 0; i < 200; i++ {
				key, mounted := "a", &mountedA
				if rng.Intn(2) == 0 {
					key, mounted = "b", &mountedB
				}
				var op Op
				switch {
				case *mounted == 0 || rng.Intn(3) == 0:
					op = Mount(key, counter{Count: i})
					*mounted++
				case rng.Intn(2) == 0:
					op = Apply(key, counterReducer, Action{Type: "INCREASE"})
				default:
					op = Unmount(key)
					*mounted--
				}
				interleaved = append(interleaved, op)
				if key == "a" {
					onA = append(onA, op)
				} else {
					onB = append(onB, op)
				}
			}

			combined := Empty()
			for _, op := range interleaved {
				combined = mustReduce(combined, op)
			}
			separate := Empty()
			for _, op := range onA {
				separate = mustReduce(separate, op)
			}
			for _, op := range onB {
				separate = mustReduce(separate, op)
			}

			for _, k := range []string{"a", "b"} {
				Expect(combined.RefCount(k)).To(Equal(separate.RefCount(k)))
				cv, cok := combined.Slice(k)
				sv, sok := separate.Slice(k)
				Expect(cok).To(Equal(sok))
				Expect(cv).To(Equal(sv))
			}
		})
	})
})

var _ = Describe("State", func() {
	It("should list keys in sorted order and total references", func() {
		s := Empty()
		s = mustReduce(s, Mount("zeta", 1))
		s = mustReduce(s, Mount("alpha", 2))
		s = mustReduce(s, Mount("alpha", 3))

		Expect(s.Keys()).To(Equal([]string{"alpha", "zeta"}))
		Expect(s.References()).To(Equal(3))
		Expect(s.Len()).To(Equal(2))
	})

	It("should render op kinds", func() {
		Expect(OpMount.String()).To(Equal("mount"))
		Expect(OpUnmount.String()).To(Equal("unmount"))
		Expect(OpApply.String()).To(Equal("apply"))
		Expect(OpKind(9).String()).To(Equal("OpKind(9)"))
	})
})
