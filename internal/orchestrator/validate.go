package orchestrator

import (
	"fmt"

	"github.com/asaskevich/govalidator"
)

// MaxRoomNameLength bounds room names accepted by Join.
const MaxRoomNameLength = 64

// ValidateRoomName checks a room name before it is sent to the server,
// which silently ignores empty names.
func ValidateRoomName(name string) error {
	if govalidator.IsNull(name) {
		return fmt.Errorf("%w: empty", ErrInvalidRoomName)
	}
	if !govalidator.IsPrintableASCII(name) {
		return fmt.Errorf("%w: %q has non-printable characters", ErrInvalidRoomName, name)
	}
	if !govalidator.StringLength(name, "1", fmt.Sprint(MaxRoomNameLength)) {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidRoomName, MaxRoomNameLength)
	}
	return nil
}
