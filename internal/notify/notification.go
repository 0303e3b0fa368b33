package notify

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindLoginCredential      = "login_credential"
	KindDeletionNotice       = "deletion_notice"
	KindWelcomeMessage       = "welcome_message"
	KindFolderShareNotice    = "folder_share_notice"
	KindWaitlistConfirmation = "waitlist_confirmation"
)

// Notification is the closed set of messages the service sends. Every variant
// carries its own payload and renders its own markdown body.
type Notification interface {
	Kind() string
	Recipient() string
	content() (subject string, markdown string)
}

type LoginCredential struct {
	Email     string
	Name      string
	Code      string
	MagicLink string
	ExpiresIn time.Duration
}

func (n LoginCredential) Kind() string      { return KindLoginCredential }
func (n LoginCredential) Recipient() string { return n.Email }

func (n LoginCredential) content() (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", n.Name)
	fmt.Fprintf(&b, "Use the link below to sign in to Hemline:\n\n[Sign in to Hemline](%s)\n\n", n.MagicLink)
	fmt.Fprintf(&b, "Or enter this code in the app:\n\n**%s**\n\n", n.Code)
	fmt.Fprintf(&b, "The link and the code expire in %d minutes and can be used once. ", minutes(n.ExpiresIn))
	b.WriteString("If you did not request this email you can ignore it.\n")
	return "Your magic link to sign in 🎉", b.String()
}

type DeletionNotice struct {
	Email       string
	Name        string
	RequestedAt time.Time
	PurgeAt     time.Time
}

func (n DeletionNotice) Kind() string      { return KindDeletionNotice }
func (n DeletionNotice) Recipient() string { return n.Email }

func (n DeletionNotice) content() (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", n.Name)
	fmt.Fprintf(&b, "We received a request on %s to delete your Hemline account.\n\n", n.RequestedAt.UTC().Format("January 2, 2006"))
	fmt.Fprintf(&b, "Your account and all of its data will be permanently deleted on **%s**. ", n.PurgeAt.UTC().Format("January 2, 2006"))
	b.WriteString("Until then you can sign in and cancel the deletion at any time.\n")
	return "Your account is scheduled for deletion", b.String()
}

type WelcomeMessage struct {
	Email string
	Name  string
}

func (n WelcomeMessage) Kind() string      { return KindWelcomeMessage }
func (n WelcomeMessage) Recipient() string { return n.Email }

func (n WelcomeMessage) content() (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", n.Name)
	b.WriteString("Welcome to Hemline! Your workspace is ready.\n\n")
	b.WriteString("- Keep client measurements in one place\n")
	b.WriteString("- Track orders from fitting to delivery\n")
	b.WriteString("- Share your work through galleries\n")
	return "Welcome to Hemline 🎉", b.String()
}

type FolderShareNotice struct {
	Email             string
	RecipientName     string
	SenderName        string
	SenderBusiness    string
	FolderName        string
	FolderDescription string
	FolderURL         string
	ImageCount        int
}

func (n FolderShareNotice) Kind() string      { return KindFolderShareNotice }
func (n FolderShareNotice) Recipient() string { return n.Email }

func (n FolderShareNotice) content() (string, string) {
	var b strings.Builder
	name := n.RecipientName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	sender := n.SenderName
	if n.SenderBusiness != "" {
		sender = fmt.Sprintf("%s (%s)", n.SenderName, n.SenderBusiness)
	}
	fmt.Fprintf(&b, "%s shared the folder **%s** with you", sender, n.FolderName)
	if n.ImageCount > 0 {
		fmt.Fprintf(&b, " (%d images)", n.ImageCount)
	}
	b.WriteString(".\n\n")
	if n.FolderDescription != "" {
		fmt.Fprintf(&b, "> %s\n\n", n.FolderDescription)
	}
	fmt.Fprintf(&b, "[View folder](%s)\n", n.FolderURL)
	return fmt.Sprintf("%s shared a folder with you 📁", n.SenderName), b.String()
}

type WaitlistConfirmation struct {
	Email string
}

func (n WaitlistConfirmation) Kind() string      { return KindWaitlistConfirmation }
func (n WaitlistConfirmation) Recipient() string { return n.Email }

func (n WaitlistConfirmation) content() (string, string) {
	return "You're On The List! 🎉", "Thanks for joining the Hemline waitlist.\n\nWe will email you as soon as your spot opens up.\n"
}

func minutes(d time.Duration) int {
	m := int(d / time.Minute)
	if m <= 0 {
		m = 1
	}
	return m
}
