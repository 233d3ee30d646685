// ferry-tester drives the bridge from the command line.
// It registers test-specific types (Box, Counter), runs the literal
// round-trip suite with --check, executes Lua scripts, and offers a REPL on a
// TTY.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"

	lua "github.com/Shopify/go-lua"
	"github.com/caarlos0/env/v11"

	"github.com/ferry-go/ferry"
	"github.com/ferry-go/ferry/luart"
)

// Config comes from the environment.
type Config struct {
	Script string `env:"FERRY_SCRIPT"`
	Quiet  bool   `env:"FERRY_QUIET"`
}

// Box is the single-slot container type from the protocol examples.
type Box struct {
	value string
}

// Counter is a mutable numeric cell exposed through the protocol.
type Counter struct {
	value int
}

func main() {
	log.SetFlags(0)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("ferry-tester: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "--check" {
		if failures := runChecks(cfg.Quiet); failures > 0 {
			log.Fatalf("ferry-tester: %d round-trip check(s) failed", failures)
		}
		return
	}

	state := lua.NewState()
	lua.OpenLibraries(state)
	rt := luart.New(state)
	b := ferry.New(rt)
	registerTestTypes(b, rt)

	script := cfg.Script
	if script == "" && len(os.Args) > 1 {
		script = os.Args[1]
	}
	if script != "" {
		runScript(state, script)
		return
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		runREPL(state)
		return
	}

	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("ferry-tester: %v", err)
	}
	if err := lua.DoString(state, string(src)); err != nil {
		log.Fatalf("ferry-tester: %v", err)
	}
}

func registerTestTypes(b *ferry.Bridge, rt *luart.Runtime) {
	ferry.Define[*Box](b, "box", ferry.TypeDef[*Box]{
		Proto: &ferry.Protocol[*Box]{
			Copy: func(x *Box) *Box { return &Box{value: x.value} },
			Get:  func(x *Box, key string) string { return x.value },
			Set:  func(x *Box, key, val string) { x.value = val },
			Len:  func(x *Box) int { return 1 },
			Repr: func(x *Box) string { return "Box:" + x.value },
		},
	})

	ferry.Define[*Counter](b, "counter", ferry.TypeDef[*Counter]{
		Proto: &ferry.Protocol[*Counter]{
			Copy: func(c *Counter) *Counter { return &Counter{value: c.value} },
			Get:  func(c *Counter, key string) int { return c.value },
			Set:  func(c *Counter, key string, val int) { c.value = val },
			Len:  func(c *Counter) int { return 1 },
			Repr: func(c *Counter) string { return fmt.Sprintf("Counter:%d", c.value) },
		},
	})

	rt.Bind(b)

	if h, err := b.ToDynamic(&Box{value: "x"}); err == nil {
		rt.Global("box", h)
	}
	if h, err := b.ToDynamic(&Counter{}); err == nil {
		rt.Global("counter", h)
	}
}

// runChecks exercises the round-trip law with literal values against both
// runtimes and reports the number of failures.
func runChecks(quiet bool) int {
	failures := 0
	runtimes := []struct {
		name string
		make func() ferry.Runtime
	}{
		{"space", func() ferry.Runtime { return ferry.NewSpace() }},
		{"luart", func() ferry.Runtime {
			state := lua.NewState()
			lua.OpenLibraries(state)
			return luart.New(state)
		}},
	}

	for _, rt := range runtimes {
		b := ferry.New(rt.make())
		checks := []struct {
			name string
			run  func() error
		}{
			{"int", func() error { return check(b, 42) }},
			{"int-zero", func() error { return check(b, 0) }},
			{"int-negative", func() error { return check(b, -17) }},
			{"double", func() error { return check(b, 3.14) }},
			{"bool-true", func() error { return check(b, true) }},
			{"bool-false", func() error { return check(b, false) }},
			{"byte", func() error { return check(b, byte(99)) }},
			{"string", func() error { return check(b, "hello world") }},
			{"string-empty", func() error { return check(b, "") }},
			{"list-empty", func() error { return check(b, []int{}) }},
			{"list", func() error { return check(b, []int{11, 22, 33}) }},
			{"list-nested", func() error { return check(b, [][]string{{"a"}, {}}) }},
		}
		for _, c := range checks {
			err := c.run()
			if err != nil {
				failures++
				log.Printf("FAIL %s/%s: %v", rt.name, c.name, err)
				continue
			}
			if !quiet {
				log.Printf("ok   %s/%s", rt.name, c.name)
			}
		}
	}
	return failures
}

func check[T any](b *ferry.Bridge, v T) error {
	h, err := b.ToDynamic(v)
	if err != nil {
		return err
	}
	got, err := ferry.FromDynamicAs[T](b, h)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(v, got) {
		return fmt.Errorf("round trip changed value: %#v != %#v", got, v)
	}
	return nil
}

func runScript(state *lua.State, path string) {
	if err := lua.LoadFile(state, path, ""); err != nil {
		log.Fatalf("ferry-tester: load %s: %v", path, err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		log.Fatalf("ferry-tester: run %s: %v", path, err)
	}
}

func runREPL(state *lua.State) {
	editor := NewLineEditor()
	defer editor.Close()

	fmt.Println("ferry-tester (Lua). Bridged globals: box, counter. Ctrl-D exits.")
	for {
		line, err := editor.ReadLine("ferry> ")
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			log.Fatalf("ferry-tester: %v", err)
		}
		if line == "" {
			continue
		}
		if err := lua.DoString(state, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
