package models

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRecord marks malformed input records (data errors).
var ErrInvalidRecord = errors.New("invalid record")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(validateGeoPoint, GeoJSONPoint{})
	})
	return validate
}

func validateGeoPoint(sl validator.StructLevel) {
	p := sl.Current().Interface().(GeoJSONPoint)
	if len(p.Coordinates) != 2 {
		return
	}
	if p.Lat() < -90 || p.Lat() > 90 {
		sl.ReportError(p.Coordinates, "Coordinates", "coordinates", "latitude", "")
	}
	if p.Lon() < -180 || p.Lon() > 180 {
		sl.ReportError(p.Coordinates, "Coordinates", "coordinates", "longitude", "")
	}
}

func ValidatePolicy(p *Policy) error {
	if p == nil {
		return fmt.Errorf("%w: policy is nil", ErrInvalidRecord)
	}
	if err := Validator().Struct(p); err != nil {
		return fmt.Errorf("%w: policy %s: %v", ErrInvalidRecord, p.ID, err)
	}
	return nil
}

func ValidateOutage(o *OutageEvent) error {
	if o == nil {
		return fmt.Errorf("%w: outage is nil", ErrInvalidRecord)
	}
	if err := Validator().Struct(o); err != nil {
		return fmt.Errorf("%w: outage %s: %v", ErrInvalidRecord, o.ID, err)
	}
	if o.EndTime != nil && o.EndTime.Before(o.StartTime) {
		return fmt.Errorf("%w: outage %s ends before it starts", ErrInvalidRecord, o.ID)
	}
	if o.Status == OutageResolved {
		if _, ok := o.Duration(); !ok {
			return fmt.Errorf("%w: resolved outage %s has neither end_time nor duration_minutes", ErrInvalidRecord, o.ID)
		}
	}
	return nil
}

func ValidateRequest(req any) error {
	if err := Validator().Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
