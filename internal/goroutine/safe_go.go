package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/logger"
)

// Group запускает фоновые горутины с перехватом panic и позволяет дождаться их при остановке.
type Group struct {
	wg  sync.WaitGroup
	log *logrus.Entry
}

// NewGroup создаёт группу, паники пишутся в log.
func NewGroup(log *logrus.Entry) *Group {
	return &Group{log: log}
}

// Go запускает fn. name попадает в лог при панике.
func (g *Group) Go(name string, fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.recover(name)
		fn()
	}()
}

// GoContext запускает fn с контекстом.
func (g *Group) GoContext(ctx context.Context, name string, fn func(context.Context)) {
	g.Go(name, func() { fn(ctx) })
}

// Wait ждёт завершения всех горутин группы не дольше timeout.
func (g *Group) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("goroutine: фоновые задачи не завершились за %s", timeout)
	}
}

func (g *Group) recover(name string) {
	if r := recover(); r != nil {
		g.log.WithFields(logrus.Fields{
			"goroutine": name,
			"panic":     fmt.Sprint(r),
			"stack":     string(debug.Stack()),
		}).Error("паника в фоновой горутине")
	}
}

var background = NewGroup(logger.Component("safe-go"))

// SafeGo запускает горутину в общей группе.
func SafeGo(fn func()) {
	background.Go("goroutine", fn)
}

// SafeGoWithContext запускает именованную горутину с контекстом в общей группе.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	background.GoContext(ctx, name, fn)
}

// Wait ждёт горутины общей группы.
func Wait(timeout time.Duration) error {
	return background.Wait(timeout)
}
