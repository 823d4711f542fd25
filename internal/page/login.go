package page

import (
	"context"
)

// LoginPage drives a username and password form
type LoginPage struct {
	*Base
}

// NewLoginPage creates the login_page object
func NewLoginPage(deps Deps) Object {
	p := &LoginPage{Base: NewBase("login_page", deps)}

	p.RegisterAction("input_login_info", "Fill the username and password inputs", []string{"username", "password"},
		func(ctx context.Context, args ...any) error {
			if err := Arity("input_login_info", args, 2); err != nil {
				return err
			}
			username, err := StringArg("input_login_info", args, 0)
			if err != nil {
				return err
			}
			password, err := StringArg("input_login_info", args, 1)
			if err != nil {
				return err
			}
			return p.InputLoginInfo(ctx, username, password)
		})

	p.RegisterAction("click_login_button", "Submit the login form", nil,
		func(ctx context.Context, args ...any) error {
			if err := Arity("click_login_button", args, 0); err != nil {
				return err
			}
			return p.Click(ctx, "login_button")
		})

	p.RegisterQuery("get_error_message", "Text of the error message", func(ctx context.Context) (any, error) {
		return p.Text(ctx, "error_message")
	})
	p.RegisterQuery("is_login_success", "Whether the success message is visible", func(ctx context.Context) (any, error) {
		return p.Visible(ctx, "success_message")
	})
	p.RegisterQuery("is_error_message_visible", "Whether the error message is visible", func(ctx context.Context) (any, error) {
		return p.Visible(ctx, "error_message")
	})

	return p
}

// InputLoginInfo fills both credential inputs
func (p *LoginPage) InputLoginInfo(ctx context.Context, username, password string) error {
	if err := p.Fill(ctx, username, "username_input"); err != nil {
		return err
	}
	return p.Fill(ctx, password, "password_input")
}
