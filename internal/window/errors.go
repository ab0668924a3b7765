package window

import "errors"

var (
	// ErrNotHostedContext is returned when an operation needs a WindowToken and there is none
	ErrNotHostedContext = errors.New("window not rendered by xcomponent")

	// ErrNoParentContext is returned when neither an opener nor a containing frame exists
	ErrNoParentContext = errors.New("can not find parent window")
)
