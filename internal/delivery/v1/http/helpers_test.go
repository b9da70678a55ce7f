package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/ktrack/pricecore/pkg/e"
)

func TestParseUUIDRejectsEmptyString(t *testing.T) {
	_, err := parseUUID("")
	if !errors.Is(err, e.ErrStatusBadRequest) {
		t.Errorf("err = %v, want ErrStatusBadRequest", err)
	}
}

func TestParseUUIDAcceptsValidUUID(t *testing.T) {
	id := uuid.New()
	got, err := parseUUID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("parseUUID = %s, want %s", got, id)
	}
}

func TestToHTTPResponseMapsErrorCategories(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{e.ErrMissingFields, http.StatusBadRequest},
		{e.ErrWatchNotFound, http.StatusNotFound},
		{e.ErrDealFilterNotFound, http.StatusNotFound},
		{errors.New("unmapped"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		code, _ := ToHTTPResponse(c.err)
		if code != c.code {
			t.Errorf("ToHTTPResponse(%v) code = %d, want %d", c.err, code, c.code)
		}
	}
}
