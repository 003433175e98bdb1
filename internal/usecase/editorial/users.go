package editorial

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
)

type RegisterUserInput struct {
	Name         string
	Email        string
	Capabilities []string
}

// RegisterUser creates an account and grants the listed capabilities.
func (s *Service) RegisterUser(ctx context.Context, input RegisterUserInput) (ports.UserProfile, error) {
	if err := s.ready(ctx); err != nil {
		return ports.UserProfile{}, err
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	fields := validation.Errors{
		"name":  validation.Validate(name, validation.Required, validation.Length(1, 200)),
		"email": validation.Validate(email, validation.Required, is.EmailFormat),
	}
	if err := fields.Filter(); err != nil {
		return ports.UserProfile{}, validationFailure(err)
	}

	caps := make([]domain.Capability, 0, len(input.Capabilities))
	for _, raw := range input.Capabilities {
		c, err := domain.ParseCapability(raw)
		if err != nil {
			return ports.UserProfile{}, err
		}
		caps = append(caps, c)
	}

	var profile ports.UserProfile
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		profile, err = s.directory.CreateUser(txCtx, name, email)
		if err != nil {
			return err
		}
		for _, c := range caps {
			if err := s.directory.GrantCapability(txCtx, profile.UserID, c); err != nil {
				return err
			}
		}
		profile.Capabilities = caps
		return nil
	})
	if err != nil {
		return ports.UserProfile{}, err
	}
	return profile, nil
}

func (s *Service) GrantCapability(ctx context.Context, userID uint64, capability string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	c, err := domain.ParseCapability(capability)
	if err != nil {
		return err
	}
	if err := s.directory.GrantCapability(ctx, userID, c); err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return domain.NotFoundf("user %d", userID)
		}
		return err
	}
	return nil
}

func (s *Service) RevokeCapability(ctx context.Context, userID uint64, capability string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	c, err := domain.ParseCapability(capability)
	if err != nil {
		return err
	}
	return s.directory.RevokeCapability(ctx, userID, c)
}

func (s *Service) ListUsers(ctx context.Context) ([]ports.UserProfile, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.directory.ListUsers(ctx)
}

func validationFailure(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return domain.Invalid("input", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for k, v := range verrs {
		if v != nil {
			fields[k] = v.Error()
		}
	}
	return &domain.ValidationError{Fields: fields}
}
