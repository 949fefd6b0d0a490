package payloads

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var check = validator.New(validator.WithRequiredStructEnabled())

// Validate checks an event payload against its validate tags. The message
// lists every failing field by Go name.
func Validate(payload any) error {
	err := check.Struct(payload)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	failed := make([]string, 0, len(fields))
	for _, fe := range fields {
		failed = append(failed, fe.Field()+" "+fe.Tag())
	}
	return fmt.Errorf("invalid %T: %s", payload, strings.Join(failed, ", "))
}
