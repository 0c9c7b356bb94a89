package symtab_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Urethramancer/t8/symtab"
)

func keyN(i int) []byte {
	return []byte(fmt.Sprintf("label_%d", i))
}

func lookup[V any](t *symtab.Table[V], key []byte) V {
	v, ok := t.Lookup(key)
	ExpectWithOffset(1, ok).To(BeTrue(), "key %q", key)
	return v
}

var _ = Describe("Table", func() {
	DescribeTable("stores and returns every key",
		func(capacity int, threshold, rate float64, n int) {
			t, err := symtab.New[uint64](
				symtab.WithCapacity(capacity),
				symtab.WithResizeThreshold(threshold),
				symtab.WithResizeRate(rate),
			)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < n; i++ {
				Expect(t.Insert(keyN(i), uint64(i*3))).To(Succeed())
			}
			Expect(t.Len()).To(Equal(n))
			for i := 0; i < n; i++ {
				v, ok := t.Lookup(keyN(i))
				Expect(ok).To(BeTrue(), "key %d", i)
				Expect(v).To(Equal(uint64(i * 3)))
			}
			_, ok := t.Lookup([]byte("missing"))
			Expect(ok).To(BeFalse())
		},
		Entry("power of two, defaults", 16, 0.5, 2.0, 200),
		Entry("capacity 1", 1, 0.5, 2.0, 100),
		Entry("odd capacity", 5, 0.5, 2.0, 100),
		Entry("prime capacity, dense", 13, 0.9, 1.5, 300),
		Entry("full before growth", 7, 1.0, 1.1, 150),
		Entry("sparse", 100, 0.25, 3.0, 500),
	)

	It("grows and keeps every value", func() {
		t, err := symtab.New[uint64](symtab.WithCapacity(4))
		Expect(err).NotTo(HaveOccurred())

		before := t.Cap()
		for i := 0; i < 64; i++ {
			Expect(t.Insert(keyN(i), uint64(i)+1000)).To(Succeed())
		}
		Expect(t.Cap()).To(BeNumerically(">", before))
		Expect(float64(t.Len()) / float64(t.Cap())).To(BeNumerically("<", symtab.DefaultResizeThreshold))
		for i := 0; i < 64; i++ {
			Expect(lookup(t, keyN(i))).To(Equal(uint64(i) + 1000))
		}
	})

	It("rejects a duplicate insert and keeps the first value", func() {
		t, _ := symtab.New[uint64]()
		Expect(t.Insert([]byte("start"), 4)).To(Succeed())
		Expect(t.Insert([]byte("start"), 9)).To(MatchError(symtab.ErrExists))
		Expect(lookup(t, []byte("start"))).To(Equal(uint64(4)))
		Expect(t.Len()).To(Equal(1))
	})

	It("overwrites with Set", func() {
		t, _ := symtab.New[string]()
		t.Set([]byte("a"), "one")
		t.Set([]byte("a"), "two")
		Expect(lookup(t, []byte("a"))).To(Equal("two"))
		Expect(t.Len()).To(Equal(1))
	})

	Context("removal", func() {
		It("reports absent after removal", func() {
			t, _ := symtab.New[uint64]()
			Expect(t.Insert([]byte("loop"), 2)).To(Succeed())
			Expect(t.Remove([]byte("loop"))).To(BeTrue())
			_, ok := t.Lookup([]byte("loop"))
			Expect(ok).To(BeFalse())
			Expect(t.Remove([]byte("loop"))).To(BeFalse())
			Expect(t.Len()).To(BeZero())
		})

		It("keeps probe chains intact across tombstones", func() {
			// Every key collides, so each lookup walks the same chain.
			t, err := symtab.New[int](
				symtab.WithCapacity(32),
				symtab.WithHash(func([]byte) uint64 { return 7 }),
			)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 10; i++ {
				Expect(t.Insert(keyN(i), i)).To(Succeed())
			}
			for i := 0; i < 10; i += 2 {
				Expect(t.Remove(keyN(i))).To(BeTrue())
			}
			for i := 0; i < 10; i++ {
				v, ok := t.Lookup(keyN(i))
				if i%2 == 0 {
					Expect(ok).To(BeFalse(), "key %d", i)
					continue
				}
				Expect(ok).To(BeTrue(), "key %d", i)
				Expect(v).To(Equal(i))
			}
		})

		It("reuses tombstone slots", func() {
			t, _ := symtab.New[int](symtab.WithCapacity(8))
			for round := 0; round < 50; round++ {
				Expect(t.Insert(keyN(round), round)).To(Succeed())
				Expect(t.Remove(keyN(round))).To(BeTrue())
			}
			Expect(t.Len()).To(BeZero())
			Expect(t.Insert([]byte("x"), 1)).To(Succeed())
			Expect(lookup(t, []byte("x"))).To(Equal(1))
		})
	})

	It("moves hashes off the reserved values", func() {
		for _, h := range []uint64{0, 1} {
			hash := h
			t, _ := symtab.New[int](symtab.WithHash(func([]byte) uint64 { return hash }))
			Expect(t.Insert([]byte("k"), 5)).To(Succeed())
			Expect(t.Insert([]byte("j"), 6)).To(Succeed())
			Expect(lookup(t, []byte("k"))).To(Equal(5))
			Expect(lookup(t, []byte("j"))).To(Equal(6))
		}
	})

	It("honours a custom equality", func() {
		fold := func(b []byte) []byte {
			out := make([]byte, len(b))
			for i, c := range b {
				if c >= 'A' && c <= 'Z' {
					c += 'a' - 'A'
				}
				out[i] = c
			}
			return out
		}
		t, _ := symtab.New[int](
			symtab.WithHash(func(k []byte) uint64 {
				var h uint64 = 5381
				for _, c := range fold(k) {
					h = h*33 + uint64(c)
				}
				return h
			}),
			symtab.WithEqual(func(a, b []byte) bool { return string(fold(a)) == string(fold(b)) }),
		)
		Expect(t.Insert([]byte("Main"), 3)).To(Succeed())
		Expect(lookup(t, []byte("MAIN"))).To(Equal(3))
	})

	It("compares only the key size prefix when asked", func() {
		t, _ := symtab.New[int](symtab.WithKeySize(4))
		Expect(t.Insert([]byte("abcdXX"), 1)).To(Succeed())
		Expect(lookup(t, []byte("abcdYY"))).To(Equal(1))
	})

	It("ranges over live entries only", func() {
		t, _ := symtab.New[int]()
		for i := 0; i < 5; i++ {
			Expect(t.Insert(keyN(i), i)).To(Succeed())
		}
		t.Remove(keyN(2))
		seen := map[string]int{}
		t.Range(func(k []byte, v int) bool {
			seen[string(k)] = v
			return true
		})
		Expect(seen).To(HaveLen(4))
		Expect(seen).NotTo(HaveKey("label_2"))
	})

	DescribeTable("rejects bad options",
		func(opt symtab.Option) {
			_, err := symtab.New[int](opt)
			Expect(err).To(MatchError(symtab.ErrInvalidOption))
		},
		Entry("zero capacity", symtab.WithCapacity(0)),
		Entry("zero threshold", symtab.WithResizeThreshold(0)),
		Entry("threshold above one", symtab.WithResizeThreshold(1.5)),
		Entry("rate of one", symtab.WithResizeRate(1)),
		Entry("negative key size", symtab.WithKeySize(-1)),
	)
})
