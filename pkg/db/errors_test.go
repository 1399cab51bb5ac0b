package db

import (
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
)

func TestClassifyRemoteNil(t *testing.T) {
	if got := ClassifyRemote(nil, "insert sale"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestClassifyRemoteNotFound(t *testing.T) {
	err := ClassifyRemote(gorm.ErrRecordNotFound, "find sale")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if !pkgerrors.IsLogic(err) {
		t.Fatal("not-found must classify as a logic error")
	}
}

func TestClassifyRemoteConnectionRefused(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := ClassifyRemote(opErr, "insert sale")
	if !pkgerrors.IsNetwork(err) {
		t.Fatalf("dial failure should be NETWORK_ERROR, got %v", err)
	}
}

func TestClassifyRemotePgConnectionException(t *testing.T) {
	err := ClassifyRemote(&pgconn.PgError{Code: "08006", Message: "connection failure"}, "adjust stock")
	if !pkgerrors.IsNetwork(err) {
		t.Fatalf("class 08 should be NETWORK_ERROR, got %v", err)
	}
}

func TestClassifyRemoteConstraintViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", Message: "foreign key violation", ConstraintName: "fk_sale_items_product"}
	err := ClassifyRemote(fk, "insert sale items")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("fk violation should be VALIDATION_ERROR, got %v", err)
	}
	if pkgerrors.IsNetwork(err) {
		t.Fatal("constraint violation must never look like a network failure")
	}

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "ux_sales_client_ref"}
	err = ClassifyRemote(unique, "insert sale")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unique violation should be CONFLICT, got %v", err)
	}
}

func TestClassifyRemotePreservesTyped(t *testing.T) {
	original := pkgerrors.New(pkgerrors.CodeNetwork, "already typed")
	if got := ClassifyRemote(original, "noop"); pkgerrors.As(got) != original {
		t.Fatalf("typed errors must pass through, got %v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_sales_client_ref"}
	if !IsUniqueViolation(pgErr, "ux_sales_client_ref") {
		t.Fatal("expected match on constraint name")
	}
	if IsUniqueViolation(pgErr, "ux_other") {
		t.Fatal("unexpected match on wrong constraint")
	}
	if !IsUniqueViolation(errors.New("duplicate key value violates unique constraint"), "") {
		t.Fatal("expected message fallback to match")
	}
}
