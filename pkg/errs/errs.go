package errs

import (
	"errors"
	"fmt"
)

// Error kinds used to route failures to the right handling boundary:
// network failures are retried, data failures are skipped locally,
// config failures abort startup, storage failures fail the whole batch.
var (
	ErrNetwork     = errors.New("network error")
	ErrDataProcess = errors.New("data processing error")
	ErrConfig      = errors.New("config error")
	ErrStorage     = errors.New("storage error")
)

func Network(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNetwork, fmt.Sprintf(format, args...))
}

func DataProcess(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataProcess, fmt.Sprintf(format, args...))
}

func Config(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func Storage(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStorage, fmt.Sprintf(format, args...))
}

// WrapNetwork tags an underlying error as network-kind while keeping
// the cause in the chain.
func WrapNetwork(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrNetwork, context, err)
}

func WrapStorage(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, context, err)
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsDataProcess(err error) bool {
	return errors.Is(err, ErrDataProcess)
}
