// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the trialdesk terminal interface.
//
// The App model owns two routes, the login view and the operator dashboard.
// Route changes arrive as NavigateMsg, sent either by the views themselves or
// by the session controller through Router. Every key press, mouse press and
// wheel event is forwarded to the activity bus before the view sees it, which
// keeps the inactivity deadline current.
package ui
