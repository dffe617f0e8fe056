package register

import (
	"fmt"
	"sync"
)

// 按 key 收集各模块在 init 中注册的启动函数，启动时统一取出执行。
// 同一 key 下的 name 不可重复，执行顺序与注册顺序一致。

type entry struct {
	name    string
	handler any
}

type funcRegister struct {
	handlers map[any][]entry
	locker   sync.Mutex
}

var fr = &funcRegister{
	handlers: make(map[any][]entry),
}

type Handler[T any] func(T)

func RegisterFunc[T any](key any, name string, handler Handler[T]) {
	fr.locker.Lock()
	defer fr.locker.Unlock()

	for _, e := range fr.handlers[key] {
		if e.name == name {
			panic(fmt.Sprintf("register: duplicate handler %q for key %T", name, key))
		}
	}
	fr.handlers[key] = append(fr.handlers[key], entry{name: name, handler: handler})
}

func ResolveFuncHandlers[T any](key any) []Handler[T] {
	fr.locker.Lock()
	defer fr.locker.Unlock()

	var result []Handler[T]
	for _, e := range fr.handlers[key] {
		if h, ok := e.handler.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}

// Names 返回 key 下已注册的函数名，用于启动日志
func Names(key any) []string {
	fr.locker.Lock()
	defer fr.locker.Unlock()

	names := make([]string, 0, len(fr.handlers[key]))
	for _, e := range fr.handlers[key] {
		names = append(names, e.name)
	}
	return names
}
