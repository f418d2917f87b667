package service

import (
	"context"
	"fmt"
	"sync"
)

// actor 以單一 goroutine 依序執行送進來的操作
type actor struct {
	ops  chan func()
	quit chan struct{}
	once sync.Once
}

func newActor() *actor {
	a := &actor{
		ops:  make(chan func()),
		quit: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *actor) loop() {
	for {
		select {
		case op := <-a.ops:
			op()
		case <-a.quit:
			return
		}
	}
}

// do 送出操作並等待完成；一旦被接受就不會因 ctx 取消而中斷
func (a *actor) do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	op := func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic in room operation: %v", p)
			}
		}()
		done <- fn()
	}

	select {
	case <-a.quit:
		return ErrStopped
	default:
	}

	select {
	case a.ops <- op:
	case <-a.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-done
}

func (a *actor) stop() {
	a.once.Do(func() {
		close(a.quit)
	})
}
