package domain

import "time"

// ReviewRequest asks the admin to approve or reject a new registration.
type ReviewRequest struct {
	AdminEmail    string    `json:"admin_email"`
	UserID        string    `json:"user_id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Company       string    `json:"company"`
	Timezone      string    `json:"timezone"`
	RegisteredAt  time.Time `json:"registered_at"`
	ApproveURL    string    `json:"approve_url"`
	RejectURL     string    `json:"reject_url"`
	AdminPanelURL string    `json:"admin_panel_url"`
}

// DecisionNotice tells a user how their registration was resolved.
type DecisionNotice struct {
	Email     string             `json:"email"`
	FirstName string             `json:"first_name"`
	Status    VerificationStatus `json:"status"`
	LoginURL  string             `json:"login_url,omitempty"`

	Representative *RepresentativeContact `json:"representative,omitempty"`
}

type RepresentativeContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func ContactOf(rep *Representative) *RepresentativeContact {
	if rep == nil {
		return nil
	}
	return &RepresentativeContact{Name: rep.Name, Phone: rep.Phone, Email: rep.Email}
}

type PasswordResetNotice struct {
	Email     string        `json:"email"`
	FirstName string        `json:"first_name"`
	ResetURL  string        `json:"reset_url"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// ContactMessage is a contact-form submission. The same value drives both the
// message to the admin and the confirmation back to the sender.
type ContactMessage struct {
	AdminEmail  string    `json:"admin_email"`
	FromName    string    `json:"from_name"`
	FromEmail   string    `json:"from_email"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}
