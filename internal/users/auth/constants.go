// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Operation Names

// Operation names appear in logs, metrics and error details.
const (
	OperationRegister  = "Register"
	OperationLogin     = "Login"
	OperationRefresh   = "Refresh"
	OperationLogout    = "Logout"
	OperationRevokeAll = "RevokeAllSessions"
)

const (
	outcomeSuccess        = "success"
	displayNameMaxLength  = 100
	emailMaxLength        = 256
	refreshTokenMaxLength = 512
)

// # Client Messages

const (
	MessageRegistered         = "User registered successfully."
	MessageLoggedIn           = "Login successful."
	MessageRefreshed          = "Token refreshed successfully."
	MessageInvalidCredentials = "Invalid username or password."
	MessageAccountLocked      = "Account is currently locked. Please try again later or contact support."
	MessageLockedAfterFailure = "Your account has been locked due to multiple failed login attempts. Please try again later or contact support."
	MessageAttemptsLeft       = "Invalid username or password. You have %d more attempt(s) before your account gets locked."
	MessageAccessDenied       = "Access to '%s' was denied due to insufficient permissions."
	MessageInvalidRefresh     = "Invalid refresh token."
	MessageReuseDetected      = "Refresh token reuse detected. Please log in again."
	MessageEmailTaken         = "User with email %s already exists."
	MessageRoleAssignFailed   = "Failed to assign role '%s' to user."
)
