package sema

import (
	"errors"
	"strings"
	"testing"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

func decode(t *testing.T, src string) []ast.Def {
	t.Helper()
	defs, err := ast.Decode(strings.NewReader(src), "test.yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return defs
}

func analyze(t *testing.T, src string) (*TypeEnv, *TermEnv) {
	t.Helper()
	tyenv, termenv, err := Analyze(decode(t, src), DefaultOptions())
	if err != nil {
		t.Fatalf("analyze:\n%v", err)
	}
	return tyenv, termenv
}

func analyzeErrs(t *testing.T, src string) Errors {
	t.Helper()
	_, _, err := Analyze(decode(t, src), DefaultOptions())
	if err == nil {
		t.Fatal("expected analysis errors")
	}
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("error %T is not Errors: %v", err, err)
	}
	return errs
}

// wantMsg fails unless some error contains each of msgs.
func wantMsg(t *testing.T, errs Errors, msgs ...string) {
	t.Helper()
	for _, m := range msgs {
		found := false
		for _, e := range errs {
			if strings.Contains(e.Msg, m) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no error mentions %q; got:\n%v", m, errs)
		}
	}
}

func countMsg(errs Errors, msg string) int {
	n := 0
	for _, e := range errs {
		if strings.Contains(e.Msg, msg) {
			n++
		}
	}
	return n
}

func termID(t *testing.T, tyenv *TypeEnv, termenv *TermEnv, name string) TermID {
	t.Helper()
	id, ok := termenv.TermByName(tyenv, ast.Ident{Name: name})
	if !ok {
		t.Fatalf("term %q not found", name)
	}
	return id
}

func rulesFor(t *testing.T, tyenv *TypeEnv, termenv *TermEnv, name string) []*Rule {
	t.Helper()
	return termenv.RulesFor(termID(t, tyenv, termenv, name))
}
