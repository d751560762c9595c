package chutie

import "github.com/root4loot/chutie/pkg/viewport"

// Observer is notified of capture progress.
type Observer interface {
	// PageStarted is called before a page is opened for url in spec.
	PageStarted(url string, spec viewport.Spec)
	// Captured is called after a record has been appended to the session.
	Captured(rec Record)
}

// ObserverFuncs adapts plain functions to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	OnPageStarted func(url string, spec viewport.Spec)
	OnCaptured    func(rec Record)
}

func (o ObserverFuncs) PageStarted(url string, spec viewport.Spec) {
	if o.OnPageStarted != nil {
		o.OnPageStarted(url, spec)
	}
}

func (o ObserverFuncs) Captured(rec Record) {
	if o.OnCaptured != nil {
		o.OnCaptured(rec)
	}
}

type nopObserver struct{}

func (nopObserver) PageStarted(string, viewport.Spec) {}
func (nopObserver) Captured(Record)                   {}
