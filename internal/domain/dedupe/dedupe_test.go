package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/internalign/skillmatch/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a key is claimed for the first time", func() {
			seen := d.SeenAndRecord(ctx, "p1/alice/sub-1")

			Convey("Then it is newly recorded without a result", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				_, ok := d.ResultFor(ctx, "p1/alice/sub-1")
				So(ok, ShouldBeFalse)
			})

			Convey("And the key is resolved to a result", func() {
				d.Resolve(ctx, "p1/alice/sub-1", "res-1")

				Convey("Then a retry sees the key and its result", func() {
					So(d.SeenAndRecord(ctx, "p1/alice/sub-1"), ShouldBeTrue)
					id, ok := d.ResultFor(ctx, "p1/alice/sub-1")
					So(ok, ShouldBeTrue)
					So(id, ShouldEqual, "res-1")
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the submission fails and the key is released", func() {
				d.Unrecord(ctx, "p1/alice/sub-1")

				Convey("Then the key can be claimed again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "p1/alice/sub-1"), ShouldBeFalse)
				})
			})
		})

		Convey("When resolving or releasing an unknown key", func() {
			d.Resolve(ctx, "missing", "res-x")
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
				_, ok := d.ResultFor(ctx, "missing")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper of size 3", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, k := range []string{"k1", "k2", "k3"} {
			So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
		}

		Convey("When a fourth key arrives", func() {
			So(d.SeenAndRecord(ctx, "k4"), ShouldBeFalse)

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
			})
		})

		Convey("When a middle key is released before overflow", func() {
			d.Unrecord(ctx, "k2")
			So(d.SeenAndRecord(ctx, "k5"), ShouldBeFalse)

			Convey("Then no eviction was needed", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k3"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		for _, size := range []int{0, -1} {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("k-%d", i)), ShouldBeFalse)
			}

			So(d.Size(), ShouldEqual, int64(n))
			So(d.SeenAndRecord(ctx, "k-0"), ShouldBeTrue)
		}
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given goroutines racing to claim the same key", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(100))
		const racers = 16

		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "shared") {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one claims it", func() {
			So(winners.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given goroutines claiming distinct keys", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		const workers, perWorker = 10, 100

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					key := fmt.Sprintf("k-%d-%d", w, j)
					d.SeenAndRecord(context.Background(), key)
					d.Resolve(context.Background(), key, "r")
				}
			}(w)
		}
		wg.Wait()

		Convey("Then every key is recorded", func() {
			So(d.Size(), ShouldEqual, int64(workers*perWorker))
		})
	})
}
