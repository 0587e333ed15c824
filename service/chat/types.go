package chat

import "strings"

// Inbound events.
const (
	EventAuthenticate      = "authenticate"
	EventJoinRoom          = "joinRoom"
	EventLeaveRoom         = "leaveRoom"
	EventSendMessage       = "sendMessage"
	EventSendDirectMessage = "sendDirectMessage"
	EventTyping            = "typing"
	EventBookingCreated    = "bookingCreated"
)

// Outbound events.
const (
	EventUserStatus             = "userStatus"
	EventNewMessage             = "newMessage"
	EventNewDirectMessage       = "newDirectMessage"
	EventUserTyping             = "userTyping"
	EventNewBookingNotification = "newBookingNotification"
	EventAck                    = "ack"
	EventError                  = "error"
)

// Ack statuses.
const (
	AckOK               = "ok"
	AckDelivered        = "delivered"
	AckRecipientOffline = "recipient-offline"
	AckRejected         = "rejected"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

const (
	roomPrefix = "room:"
	userPrefix = "user:"
)

// RoomChannel is the membership key of a chat room.
func RoomChannel(roomID string) string { return roomPrefix + roomID }

// UserChannel is the private channel every authenticated connection joins.
func UserChannel(identity string) string { return userPrefix + identity }

// IsUserChannel reports whether room is a private user channel.
func IsUserChannel(room string) bool { return strings.HasPrefix(room, userPrefix) }

// UserStatus is the payload of userStatus.
type UserStatus struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// UserTyping is the payload of userTyping.
type UserTyping struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// Ack answers an inbound frame that carried an ackId.
type Ack struct {
	AckID  string `json:"ackId"`
	Event  string `json:"event"`
	Status string `json:"status"`
	Code   int    `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ErrorEvent is sent before the server closes a connection.
type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
