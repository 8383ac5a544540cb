package service

import "fmt"

func magicLinkEmailTemplate(url, appName string) (subject, body string) {
	subject = "Your Magic Link - Sign in to your account"
	body = fmt.Sprintf(`Sign in to your account

Click the link below to sign in to your account. This link will expire in 15 minutes.

%s

If you didn't request this email, you can safely ignore it.

© %s`, url, appName)
	return subject, body
}

func passwordResetEmailTemplate(url, appName string) (subject, body string) {
	subject = "Reset your password"
	body = fmt.Sprintf(`Reset your password

We received a request to reset your password. Click the link below to create a new password.
This link will expire in 30 minutes.

%s

If you didn't request this password reset, you can safely ignore this email.

© %s`, url, appName)
	return subject, body
}

func verificationEmailTemplate(url, name, appName string) (subject, body string) {
	subject = "Verify your email address"
	greeting := "Hi,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}
	body = fmt.Sprintf(`Verify your email address

%s

Thanks for signing up! Please verify your email address by clicking the link below.
This link will expire in 24 hours.

%s

If you didn't create an account, you can safely ignore this email.

© %s`, greeting, url, appName)
	return subject, body
}
