// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import "errors"

// ErrUnknownConversation is logged (never propagated) when a
// summary record names a (tenant, conversation) the Processor has no
// state for.
var ErrUnknownConversation = errors.New("processor: summary references unknown conversation")

// ErrUnknownTenant is logged (never propagated) when a raw message
// carries no tenant_id, which the Processor cannot key state on.
var ErrUnknownTenant = errors.New("processor: message has no tenant_id")
