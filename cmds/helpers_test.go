package cmds

import (
	"fmt"
	"testing"
)

func TestVar(t *testing.T) {
	a := Var[int]("TestVarInt", "int")
	b := Var[string]("TestVarString", "string")
	GlobalExecutor.MustExecute([]string{
		"TestVarInt", "42",
		"TestVarString=bar",
	})
	if *a != 42 {
		t.Fatalf("got %d", *a)
	}
	if *b != "bar" {
		t.Fatalf("got %s", *b)
	}
	GlobalExecutor.MustExecute([]string{
		"TestVarInt.",
	})
	if *a != 0 {
		t.Fatalf("got %d", *a)
	}
}

func TestSwitch(t *testing.T) {
	foo := Switch("TestSwitch", "switch")
	GlobalExecutor.MustExecute([]string{
		"TestSwitch",
	})
	if !*foo {
		t.Fatal()
	}
	GlobalExecutor.MustExecute([]string{
		"!TestSwitch",
	})
	if *foo {
		t.Fatal()
	}
}

func TestCollect(t *testing.T) {
	list := Collect[string]("TestCollect", "collect")
	GlobalExecutor.MustExecute([]string{
		"TestCollect", "a",
		"TestCollect=b",
	})
	if str := fmt.Sprintf("%v", *list); str != "[a b]" {
		t.Fatalf("got %s", str)
	}
}

func TestTypedVar(t *testing.T) {
	type Model string
	v := Var[Model]("TestTypedVar", "typed")
	GlobalExecutor.MustExecute([]string{
		"TestTypedVar", "llama2",
	})
	if *v != "llama2" {
		t.Fatalf("got %s", *v)
	}
}
