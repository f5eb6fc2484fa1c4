package utils_test

import (
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestKindOfError_DomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want utils.ErrorKind
	}{
		{utils.NewValidationError("bad input"), utils.ErrorKindValidation},
		{utils.NewNotFoundError("missing"), utils.ErrorKindNotFound},
		{utils.NewConflictError("duplicate"), utils.ErrorKindConflict},
		{utils.WrapInternalError(errors.New("boom")), utils.ErrorKindInternal},
	}
	for _, c := range cases {
		if got := utils.KindOfError(c.err); got != c.want {
			t.Errorf("KindOfError(%v) = %s; want %s", c.err, got, c.want)
		}
	}
}

func TestKindOfError_WrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("creating part: %w", utils.NewConflictError("duplicate name"))
	if got := utils.KindOfError(wrapped); got != utils.ErrorKindConflict {
		t.Fatalf("KindOfError(wrapped) = %s; want %s", got, utils.ErrorKindConflict)
	}
}

func TestKindOfError_RecordNotFound(t *testing.T) {
	if got := utils.KindOfError(gorm.ErrRecordNotFound); got != utils.ErrorKindNotFound {
		t.Fatalf("KindOfError(gorm.ErrRecordNotFound) = %s; want %s", got, utils.ErrorKindNotFound)
	}
	if got := utils.KindOfError(utils.ErrorRecordNotFound); got != utils.ErrorKindNotFound {
		t.Fatalf("KindOfError(ErrorRecordNotFound) = %s; want %s", got, utils.ErrorKindNotFound)
	}
}

func TestKindOfError_DuplicateKey(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3-1' for key 'idx_part_item'"}
	if got := utils.KindOfError(dup); got != utils.ErrorKindConflict {
		t.Fatalf("KindOfError(1062) = %s; want %s", got, utils.ErrorKindConflict)
	}
	wrapped := fmt.Errorf("allocating identifier: %w", dup)
	if got := utils.KindOfError(wrapped); got != utils.ErrorKindConflict {
		t.Fatalf("KindOfError(wrapped 1062) = %s; want %s", got, utils.ErrorKindConflict)
	}
	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	if got := utils.KindOfError(other); got != utils.ErrorKindInternal {
		t.Fatalf("KindOfError(1213) = %s; want %s", got, utils.ErrorKindInternal)
	}
}

func TestKindOfError_UnclassifiedIsInternal(t *testing.T) {
	if got := utils.KindOfError(errors.New("connection reset")); got != utils.ErrorKindInternal {
		t.Fatalf("KindOfError(plain error) = %s; want %s", got, utils.ErrorKindInternal)
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := utils.WrapInternalError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("WrapInternalError must keep the cause reachable through errors.Is")
	}
}
