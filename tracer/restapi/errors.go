package restapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/levigross/grequests"
	"github.com/pkg/errors"
)

var (
	ErrConflict   = errors.New("another trace is in progress")
	ErrCleared    = errors.New("trace request was cleared")
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// wrapResp wraps error object by errFailedResp().
func wrapResp(r *grequests.Response, err error) (*grequests.Response, error) {
	if err != nil {
		return nil, errFailedResp(r, err)
	}
	return r, nil
}

// errFailedResp wraps error object in the user friendly error message.
func errFailedResp(res *grequests.Response, err error) error {
	if res == nil || res.RawResponse == nil || res.RawResponse.Request == nil {
		return errors.Wrap(err, "failed to send request")
	}
	method := res.RawResponse.Request.Method
	url := res.RawResponse.Request.URL
	return errors.Wrapf(err, "failed to %s %s", method, url)
}

// errStatus converts a non-200 response into an error.
// The body of the response is used as the detail message.
func errStatus(res *grequests.Response) error {
	msg := strings.TrimSpace(res.String())
	var base error
	switch res.StatusCode {
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusGone:
		base = ErrCleared
	case http.StatusBadRequest:
		base = ErrBadRequest
	case http.StatusNotFound:
		base = ErrNotFound
	default:
		return errUnexpStatus(res, []int{http.StatusOK})
	}
	if msg == "" {
		return base
	}
	return errors.Wrap(base, msg)
}

// errUnexpStatus returns a error object.
func errUnexpStatus(res *grequests.Response, expected []int) error {
	method := res.RawResponse.Request.Method
	url := res.RawResponse.Request.URL
	actual := res.StatusCode

	exp := ""
	for i := range expected {
		if i != 0 {
			exp += "|"
		}
		exp += strconv.FormatInt(int64(expected[i]), 10)
	}

	return fmt.Errorf("%s %s returned unexpected status code. expected %s, but %d",
		method, url,
		exp, actual)
}
