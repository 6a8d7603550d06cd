package transport

import "github.com/hashicorp/go-multierror"

// appendErr accumulates err onto errs using go-multierror, for reporting
// every validation failure instead of only the first.
func appendErr(errs error, err error) error {
	return multierror.Append(errs, err)
}
