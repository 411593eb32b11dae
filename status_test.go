package motif

import "testing"

func TestErrorImplementsErrorInterface(t *testing.T) {
	err := newError(StatusNotFound, "id %d not found", 7)
	if err.Error() == "" {
		t.Fatalf("expected a non-empty error message")
	}
	var e *Error
	if !isError(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Status != StatusNotFound {
		t.Fatalf("got status %v, want StatusNotFound", e.Status)
	}
}

func isError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusOk:              "ok",
		StatusInvalidArgument: "invalid argument",
		StatusNotFound:        "not found",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
