package remote

import (
	"reflect"
	"testing"
)

func TestFilterPostgREST(t *testing.T) {
	key, val := Eq("id", "abc-123").PostgREST()
	if key != "id" || val != "eq.abc-123" {
		t.Fatalf("got %s=%s", key, val)
	}

	key, val = VisibleFilter("ana@x.com").PostgREST()
	if key != "or" {
		t.Fatalf("expected or key, got %s", key)
	}
	want := `(email_creador.eq."ana@x.com",email_compartido.eq."ana@x.com")`
	if val != want {
		t.Fatalf("got %s, want %s", val, want)
	}
}

func TestFilterSQL(t *testing.T) {
	frag, args := VisibleFilter("b@x.com").SQL(0)
	if frag != "(email_creador = $1 OR email_compartido = $2)" {
		t.Fatalf("unexpected fragment %q", frag)
	}
	if !reflect.DeepEqual(args, []any{"b@x.com", "b@x.com"}) {
		t.Fatalf("unexpected args %v", args)
	}

	frag, args = Eq("id", "x").SQL(2)
	if frag != "id = $3" || len(args) != 1 {
		t.Fatalf("unexpected %q %v", frag, args)
	}
}

func TestFilterMatch(t *testing.T) {
	owner, shared := "a@x.com", "b@x.com"
	row := Row{ID: "1", OwnerEmail: &owner, SharedWithEmail: &shared}

	cases := map[string]bool{
		"a@x.com": true,
		"b@x.com": true,
		"c@x.com": false,
	}
	for email, want := range cases {
		if got := VisibleFilter(email).Match(row); got != want {
			t.Errorf("match(%s) = %v, want %v", email, got, want)
		}
		if got := row.VisibleTo(email); got != want {
			t.Errorf("VisibleTo(%s) = %v, want %v", email, got, want)
		}
	}
	if !Eq("id", "1").Match(row) || Eq("id", "2").Match(row) {
		t.Fatal("id equality mismatch")
	}
}
