// Package channel defines the outbound reply surface of the conversational
// transport and the capability negotiation used to render interactive
// choosers on transports with uneven widget support.
package channel
