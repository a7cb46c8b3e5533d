package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
	"github.com/angeloszaimis/endpoint-balancer/internal/registry"
)

func seedEndpoints() []endpoint.Endpoint {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []endpoint.Endpoint{
		{ID: "1", Name: "Primary API", URL: "https://api-primary.example.com", Status: endpoint.StatusHealthy, ResponseTime: 120, Load: 45, LastChecked: now},
		{ID: "2", Name: "Secondary API", URL: "https://api-secondary.example.com", Status: endpoint.StatusHealthy, ResponseTime: 95, Load: 38, LastChecked: now},
		{ID: "3", Name: "Backup API", URL: "https://api-backup.example.com", Status: endpoint.StatusWarning, ResponseTime: 250, Load: 17, LastChecked: now},
	}
}

func counterIDs() registry.IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("gen-%d", n.Add(1))
	}
}

var _ = Describe("Registry", func() {
	var r *registry.Registry

	BeforeEach(func() {
		var err error
		r, err = registry.New(seedEndpoints(), counterIDs())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("should keep seed order", func() {
			list := r.List()
			Expect(list).To(HaveLen(3))
			Expect(list[0].ID).To(Equal("1"))
			Expect(list[2].ID).To(Equal("3"))
		})

		It("should reject duplicate seed ids", func() {
			seed := seedEndpoints()
			seed[1].ID = "1"

			_, err := registry.New(seed, nil)
			Expect(errors.Is(err, registry.ErrDuplicateID)).To(BeTrue())
		})

		It("should reject a status that does not match the response time", func() {
			seed := seedEndpoints()
			seed[2].Status = endpoint.StatusHealthy

			_, err := registry.New(seed, nil)
			Expect(errors.Is(err, registry.ErrInvalidEndpoint)).To(BeTrue())
		})

		It("should accept an empty fleet", func() {
			empty, err := registry.New(nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty.List()).To(BeEmpty())
			Expect(empty.List()).NotTo(BeNil())
		})
	})

	Describe("List", func() {
		It("should return a copy", func() {
			list := r.List()
			list[0].Load = 99

			Expect(r.List()[0].Load).To(Equal(45))
		})
	})

	Describe("Append", func() {
		It("should add to the end", func() {
			e := endpoint.New("4", "New API", "https://api-new.example.com", time.Now())
			Expect(r.Append(e)).To(Succeed())

			list := r.List()
			Expect(list).To(HaveLen(4))
			Expect(list[3].ID).To(Equal("4"))
		})

		It("should reject an existing id", func() {
			e := endpoint.New("2", "Dup", "https://dup.example.com", time.Now())
			err := r.Append(e)

			Expect(errors.Is(err, registry.ErrDuplicateID)).To(BeTrue())
			Expect(r.Len()).To(Equal(3))
		})

		It("should reject loads out of range", func() {
			e := endpoint.New("4", "New API", "https://api-new.example.com", time.Now())
			e.Load = 101

			Expect(errors.Is(r.Append(e), registry.ErrInvalidEndpoint)).To(BeTrue())
			Expect(r.Len()).To(Equal(3))
		})
	})

	Describe("Register", func() {
		It("should assign generated ids", func() {
			created, err := r.Register(func(id string) endpoint.Endpoint {
				return endpoint.New(id, "New API", "https://api-new.example.com", time.Now())
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal("gen-1"))
			Expect(r.Len()).To(Equal(4))
		})

		It("should use UUIDs by default", func() {
			reg, err := registry.New(nil, nil)
			Expect(err).NotTo(HaveOccurred())

			a, err := reg.Register(func(id string) endpoint.Endpoint {
				return endpoint.New(id, "A", "https://a.example.com", time.Now())
			})
			Expect(err).NotTo(HaveOccurred())
			b, err := reg.Register(func(id string) endpoint.Endpoint {
				return endpoint.New(id, "B", "https://b.example.com", time.Now())
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.ID).To(HaveLen(36))
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("should never hand out the same id under concurrency", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := r.Register(func(id string) endpoint.Endpoint {
						return endpoint.New(id, "API", "https://api.example.com", time.Now())
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			seen := map[string]bool{}
			for _, e := range r.List() {
				Expect(seen).NotTo(HaveKey(e.ID))
				seen[e.ID] = true
			}
			Expect(seen).To(HaveLen(103))
		})
	})

	Describe("ReplaceAll", func() {
		It("should swap the whole sequence", func() {
			updated := r.List()
			updated[0].Load = 10

			Expect(r.ReplaceAll(updated)).To(Succeed())
			Expect(r.List()[0].Load).To(Equal(10))
		})

		It("should leave the registry untouched when invalid", func() {
			updated := r.List()
			updated[0].Load = -1

			Expect(r.ReplaceAll(updated)).NotTo(Succeed())
			Expect(r.List()).To(Equal(seedEndpoints()))
		})
	})

	Describe("Update", func() {
		It("should store the function result", func() {
			updated, err := r.Update(func(current []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
				for i := range current {
					current[i].Load = 0
				}
				return current, nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(endpoint.TotalLoad(updated)).To(Equal(0))
			Expect(endpoint.TotalLoad(r.List())).To(Equal(0))
		})

		It("should not write when the function fails", func() {
			boom := errors.New("boom")
			_, err := r.Update(func(current []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
				current[0].Load = 0
				return nil, boom
			})

			Expect(err).To(MatchError(boom))
			Expect(r.List()).To(Equal(seedEndpoints()))
		})

		It("should recover from a panic and keep the old state", func() {
			_, err := r.Update(func(current []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
				current[0].Load = 0
				panic("unexpected")
			})

			Expect(err).To(MatchError(ContainSubstring("panicked")))
			Expect(r.List()).To(Equal(seedEndpoints()))

			// lock must have been released
			Expect(r.Append(endpoint.New("4", "API", "https://api.example.com", time.Now()))).To(Succeed())
		})

		It("should not lose appends interleaved with updates", func() {
			var wg sync.WaitGroup

			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := r.Update(func(current []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
						for j := range current {
							current[j].Load = (current[j].Load + 1) % 100
						}
						return current, nil
					})
					Expect(err).NotTo(HaveOccurred())
				}()
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := r.Register(func(id string) endpoint.Endpoint {
						return endpoint.New(id, "API", "https://api.example.com", time.Now())
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(r.Len()).To(Equal(53))
		})
	})
})
