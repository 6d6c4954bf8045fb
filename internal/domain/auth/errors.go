package auth

import "errors"

var ErrDeviceIssue = errors.New("failed to issue device token")
