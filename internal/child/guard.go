package child

import "fmt"

type policy int

const (
	// report routes a handler failure to OnError
	report policy = iota

	// propagate returns a handler failure to the caller
	propagate
)

// invoke runs a user handler. Panics are converted to errors.
func (c *Child) invoke(name string, p policy, fn func() error) error {
	err := safeCall(fn)
	if err == nil {
		return nil
	}

	err = fmt.Errorf("%s handler: %w", name, err)
	if p == propagate {
		return err
	}
	return c.reportError(err)
}

// reportError hands err to OnError. The error is returned when nobody handled it,
// so that it can not disappear silently.
func (c *Child) reportError(err error) error {
	if c.opts.OnError == nil {
		return err
	}

	if herr := safeCall(func() error { return c.opts.OnError(err) }); herr != nil {
		return herr
	}
	return nil
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
