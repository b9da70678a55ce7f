package http

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ktrack/pricecore/pkg/e"
)

func TestToDomainFilterRequiresUserID(t *testing.T) {
	_, err := toDomainFilter(&dealFilterRequest{UserID: ""})
	if !errors.Is(err, e.ErrStatusBadRequest) {
		t.Errorf("err = %v, want ErrStatusBadRequest", err)
	}
}

func TestToDomainFilterRejectsMalformedID(t *testing.T) {
	_, err := toDomainFilter(&dealFilterRequest{UserID: uuid.New().String(), ID: "not-a-uuid"})
	if !errors.Is(err, e.ErrStatusBadRequest) {
		t.Errorf("err = %v, want ErrStatusBadRequest", err)
	}
}

func TestToDomainFilterCarriesFieldsThrough(t *testing.T) {
	userID := uuid.New()
	req := &dealFilterRequest{
		UserID:     userID.String(),
		Categories: []string{"Computer Keyboards"},
		MinRating:  4.0,
		Active:     true,
	}

	f, err := toDomainFilter(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.UserID != userID {
		t.Errorf("UserID = %s, want %s", f.UserID, userID)
	}
	if f.ID != uuid.Nil {
		t.Errorf("ID = %s, want uuid.Nil when request carries no id", f.ID)
	}
	if len(f.Categories) != 1 || f.Categories[0] != "Computer Keyboards" {
		t.Errorf("Categories = %v, want [Computer Keyboards]", f.Categories)
	}
	if !f.Active {
		t.Error("Active = false, want true")
	}
}
