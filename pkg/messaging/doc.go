// Package messaging manages the notification registrations of a branch:
// telegram groups, FCM device tokens and web-push subscriptions.
package messaging
