package binding

import "errors"

var (
	ErrEmptyName       = errors.New("binding name cannot be empty")
	ErrDuplicateName   = errors.New("duplicate binding name")
	ErrNilCapability   = errors.New("capability cannot be nil")
	ErrNilObject       = errors.New("cannot bind a nil object")
	ErrUnknownMethod   = errors.New("exported method not found")
	ErrNoMethods       = errors.New("object exposes no methods")
	ErrUnknownObjectID = errors.New("unknown bound object")
)
