// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package remote builds hardened ssh and scp invocations for guests.
//
// Guests are ephemeral and come with fresh host keys, so host key storage and
// checking as well as any interactive prompts are disabled. Only the given
// key is offered.
package remote
