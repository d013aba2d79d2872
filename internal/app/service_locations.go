package app

import (
	"strings"

	"notespace/api/internal/locations"
)

func (s *Service) LocationRoots() []locations.Node {
	return s.locations.Roots()
}

func (s *Service) LocationsByType(locationType string) ([]locations.Node, error) {
	locationType = strings.ToUpper(strings.TrimSpace(locationType))
	if !locations.ValidType(locationType) {
		return nil, badRequest("INVALID_LOCATION_TYPE", "unknown location type")
	}
	return s.locations.ByType(locationType), nil
}

func (s *Service) Location(code string) (locations.Node, error) {
	return s.locations.Get(code)
}

func (s *Service) LocationChildren(code string) ([]locations.Node, error) {
	return s.locations.Children(code)
}

func (s *Service) LocationPath(code string) ([]locations.Node, error) {
	return s.locations.Path(code)
}
