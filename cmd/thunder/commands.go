package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/thunderauth"
	"github.com/MrEthical07/thunderauth/endpoint"
)

var stdout io.Writer = os.Stdout

// need reports a missing value for flags that may also come from the
// environment.
func need(flag, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return nil
}

type RegisterCmd struct {
	Email       string `long:"email" required:"true"`
	Password    string `long:"password" env:"THUNDER_PASSWORD"`
	DisplayName string `long:"name"`
	Phone       string `long:"phone"`
}

func (c *RegisterCmd) Execute(_ []string) error {
	if err := need("password", c.Password); err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.Register(s.ctx, thunderauth.RegisterRequest{
		DisplayName: c.DisplayName,
		Email:       c.Email,
		Password:    c.Password,
		PhoneNumber: c.Phone,
	})
	return report(resp, err)
}

type LoginCmd struct {
	Email    string `long:"email" env:"THUNDER_EMAIL"`
	Password string `long:"password" env:"THUNDER_PASSWORD"`
}

func (c *LoginCmd) Execute(_ []string) error {
	if err := errors.Join(need("email", c.Email), need("password", c.Password)); err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.Login(s.ctx, c.Email, c.Password)
	if err == nil && resp.Status == thunderauth.StatusTwoFactorRequired {
		fmt.Fprintln(stdout, "two-factor code required; run: thunder two-factor --code <code>")
	}
	return report(resp, err)
}

type TwoFactorCmd struct {
	Email    string `long:"email" env:"THUNDER_EMAIL"`
	Password string `long:"password" env:"THUNDER_PASSWORD"`
	Code     string `long:"code" required:"true"`
}

func (c *TwoFactorCmd) Execute(_ []string) error {
	if err := errors.Join(need("email", c.Email), need("password", c.Password)); err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.TwoFactorLogin(s.ctx, c.Email, c.Password, c.Code)
	return report(resp, err)
}

type ForgotPasswordCmd struct {
	Email string `long:"email" env:"THUNDER_EMAIL"`
}

func (c *ForgotPasswordCmd) Execute(_ []string) error {
	if err := need("email", c.Email); err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.ForgotPassword(s.ctx, c.Email)
	return report(resp, err)
}

type ResetPasswordCmd struct {
	UserID   string `long:"user-id" required:"true"`
	Token    string `long:"token" required:"true"`
	Password string `long:"password" env:"THUNDER_NEW_PASSWORD"`
	Confirm  string `long:"confirm" description:"defaults to --password"`
}

func (c *ResetPasswordCmd) Execute(_ []string) error {
	if err := need("password", c.Password); err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	confirm := c.Confirm
	if confirm == "" {
		confirm = c.Password
	}
	resp, err := s.client.ResetPassword(s.ctx, thunderauth.ResetPasswordRequest{
		UserID:          c.UserID,
		Token:           c.Token,
		NewPassword:     c.Password,
		ConfirmPassword: confirm,
	})
	return report(resp, err)
}

type ConfirmEmailCmd struct {
	UserID string `long:"user-id" required:"true"`
	Token  string `long:"token" required:"true"`
}

func (c *ConfirmEmailCmd) Execute(_ []string) error {
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.ConfirmEmail(s.ctx, c.UserID, c.Token)
	return report(resp, err)
}

type RefreshCmd struct{}

func (c *RefreshCmd) Execute(_ []string) error {
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	resp, err := s.client.RefreshToken(s.ctx)
	return report(resp, err)
}

type LogoutCmd struct{}

func (c *LogoutCmd) Execute(_ []string) error {
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.client.Logout(s.ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "logged out")
	return nil
}

type StatusCmd struct{}

func (c *StatusCmd) Execute(_ []string) error {
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.client.Status(s.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "access token:  %s\n", presence(st.HasAccessToken, st.AccessValid))
	fmt.Fprintf(stdout, "refresh token: %s\n", presence(st.HasRefreshToken, st.HasRefreshToken))
	if !st.ExpiresAt.IsZero() {
		fmt.Fprintf(stdout, "expires at:    %s\n", st.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func presence(has, valid bool) string {
	switch {
	case !has:
		return "absent"
	case !valid:
		return "expired"
	default:
		return "present"
	}
}

type CallCmd struct {
	Method string   `long:"method" default:"GET" choice:"GET" choice:"POST" choice:"PUT" choice:"PATCH" choice:"DELETE"`
	Path   string   `long:"path" required:"true"`
	Body   string   `long:"body" description:"JSON object sent as the request body"`
	Query  []string `long:"query" description:"key=value query parameter, repeatable"`
	Anon   bool     `long:"anonymous" description:"do not attach the access token"`
}

func (c *CallCmd) descriptor() (endpoint.Descriptor, error) {
	d := endpoint.Descriptor{
		Path:          c.Path,
		Method:        endpoint.Method(c.Method),
		Headers:       endpoint.DefaultHeaders(),
		Authenticated: !c.Anon,
	}
	if c.Body != "" {
		if err := json.Unmarshal([]byte(c.Body), &d.Body); err != nil {
			return d, fmt.Errorf("--body: %w", err)
		}
	}
	for _, kv := range c.Query {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return d, fmt.Errorf("--query %q: expected key=value", kv)
		}
		if d.Query == nil {
			d.Query = map[string]string{}
		}
		d.Query[k] = v
	}
	return d, nil
}

func (c *CallCmd) Execute(_ []string) error {
	d, err := c.descriptor()
	if err != nil {
		return err
	}
	s, err := opts.open(nil)
	if err != nil {
		return err
	}
	defer s.Close()
	body, err := s.client.Execute(s.ctx, d)
	if err != nil {
		return err
	}
	_, err = stdout.Write(body)
	if err == nil && len(body) > 0 && body[len(body)-1] != '\n' {
		_, err = fmt.Fprintln(stdout)
	}
	return err
}

// report prints the outcome of an auth operation. Tokens are never printed.
func report(resp *thunderauth.AuthResponse, err error) error {
	var statusErr *thunderauth.StatusError
	if errors.As(err, &statusErr) || resp == nil {
		return err
	}
	fmt.Fprintf(stdout, "status: %s\n", resp.Status)
	if resp.Message != "" {
		fmt.Fprintf(stdout, "message: %s\n", resp.Message)
	}
	if resp.Data != nil && resp.Data.User != nil {
		u := resp.Data.User
		if u.DisplayName != "" {
			fmt.Fprintf(stdout, "user: %s <%s>\n", u.DisplayName, u.Email)
		} else {
			fmt.Fprintf(stdout, "user: %s\n", u.Email)
		}
	}
	return err
}
