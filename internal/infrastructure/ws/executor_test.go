package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerialExecutor(t *testing.T) {
	t.Run("runs a key in submission order", func(t *testing.T) {
		req := require.New(t)
		e := newSerialExecutor()

		var got []int
		for i := 0; i < 100; i++ {
			e.Submit("room", func() { got = append(got, i) })
		}
		e.Wait()

		req.Len(got, 100)
		for i, v := range got {
			req.Equal(i, v)
		}
	})

	t.Run("keys run independently", func(t *testing.T) {
		e := newSerialExecutor()

		blocked := make(chan struct{})
		release := make(chan struct{})
		e.Submit("a", func() {
			close(blocked)
			<-release
		})
		<-blocked

		done := make(chan struct{})
		e.Submit("b", func() { close(done) })
		<-done

		close(release)
		e.Wait()
	})

	t.Run("concurrent submitters", func(t *testing.T) {
		req := require.New(t)
		e := newSerialExecutor()

		var (
			mu    sync.Mutex
			count int
			wg    sync.WaitGroup
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					e.Submit("room", func() {
						mu.Lock()
						count++
						mu.Unlock()
					})
				}
			}()
		}
		wg.Wait()
		e.Wait()

		req.Equal(500, count)
	})
}
