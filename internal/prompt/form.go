package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/page"
)

// Fill asks for every field of desc, offering the current values as
// defaults. Fields already present in preset are not asked for.
func Fill(ctx context.Context, d Driver, desc page.FormDescriptor, preset url.Values) (url.Values, error) {
	out := url.Values{}
	for key, vals := range preset {
		out[key] = append([]string(nil), vals...)
	}
	for _, field := range desc.Fields {
		if _, ok := out[field.Name]; ok {
			continue
		}
		switch field.Type {
		case "hidden", "file":
			continue
		case "checkbox":
			checked, err := d.Confirm(ctx, ConfirmConfig{Message: field.Name, Default: len(field.Values) > 0})
			if err != nil {
				return nil, err
			}
			if checked {
				out.Set(field.Name, firstOr(field.Values, "on"))
			} else {
				out[field.Name] = nil
			}
		case "password":
			v, err := d.Password(ctx, InputConfig{Message: field.Name})
			if err != nil {
				return nil, err
			}
			out.Set(field.Name, v)
		default:
			v, err := d.Input(ctx, InputConfig{
				Message:   field.Name,
				Default:   field.Value(),
				Help:      field.Type,
				Validator: validatorFor(field.Type),
			})
			if err != nil {
				return nil, err
			}
			out.Set(field.Name, v)
		}
	}
	return out, nil
}

// Credentials asks for the login email and password.
func Credentials(ctx context.Context, d Driver, email string) (string, string, error) {
	if email == "" {
		v, err := d.Input(ctx, InputConfig{Message: "Email", Validator: validatorFor("email")})
		if err != nil {
			return "", "", err
		}
		email = v
	}
	password, err := d.Password(ctx, InputConfig{Message: "Mot de passe", Validator: required})
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func validatorFor(kind string) func(string) error {
	switch kind {
	case "number":
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				return fmt.Errorf("%q is not a number", s)
			}
			return nil
		}
	case "date":
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			_, err := datefmt.Parse(s)
			return err
		}
	case "email":
		return func(s string) error {
			_, err := mail.ParseAddress(s)
			return err
		}
	}
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value required")
	}
	return nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
