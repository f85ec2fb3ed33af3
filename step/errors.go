package step

import (
	"fmt"
	"strings"
)

// UnsupportedResourceError is returned when the resources input names a resource the step can not list.
type UnsupportedResourceError struct {
	Resource string
}

func (e UnsupportedResourceError) Error() string {
	return fmt.Sprintf("unsupported resource (%s), supported values: %s", e.Resource, strings.Join(supportedResources, ", "))
}
