//go:build js && wasm

package main

import "syscall/js"

// frameLayout runs callbacks after the next rendered frame, once the browser
// has applied pending style and layout changes.
type frameLayout struct{}

func (frameLayout) AfterLayout(fn func()) {
	raf := js.Global().Get("requestAnimationFrame")
	var outer, inner js.Func
	inner = js.FuncOf(func(js.Value, []js.Value) any {
		inner.Release()
		fn()
		return nil
	})
	outer = js.FuncOf(func(js.Value, []js.Value) any {
		outer.Release()
		raf.Invoke(inner)
		return nil
	})
	raf.Invoke(outer)
}
