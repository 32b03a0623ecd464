package notify

import (
	"fmt"
	"html"
)

const OTPEmailSubject = "Quizzo - Password Reset OTP"

func OTPSMSText(code string) string {
	return fmt.Sprintf("Your Quizzo verification code is: %s. This code will expire in 10 minutes. Do not share this code with anyone.", code)
}

func WelcomeSMSText(name string) string {
	return fmt.Sprintf("Welcome to Quizzo, %s! Get ready to challenge your knowledge and compete with friends. Start playing now!", name)
}

func OTPEmailText(code string) string {
	return fmt.Sprintf("Your Quizzo password reset code is: %s\nThis code will expire in 10 minutes.\nIf you didn't request this password reset, please ignore this email.", code)
}

// OTPEmailHTML собирает письмо со сбросом пароля.
func OTPEmailHTML(code string) string {
	return fmt.Sprintf(otpEmailTemplate, html.EscapeString(code))
}

const otpEmailTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background-color: #1E232C; color: white; padding: 20px; }
.content { background-color: #f4f4f4; padding: 30px; }
.otp-box { background-color: white; padding: 20px; text-align: center; }
.otp-code { font-size: 32px; font-weight: bold; color: #35C2C1; }
.footer { text-align: center; padding: 20px; color: #666; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>Quizzo</h1></div>
<div class="content">
<h2>Password Reset Request</h2>
<p>You requested to reset your password.</p>
<p>Use the OTP code below to continue:</p>
<div class="otp-box">
<p>Your OTP Code</p>
<div class="otp-code">%s</div>
</div>
<p><strong>This code will expire in 10 minutes.</strong></p>
<p>If you didn't request this password reset, please ignore this email.</p>
</div>
<div class="footer"><p>Quizzo. All rights reserved.</p></div>
</div>
</body>
</html>
`
