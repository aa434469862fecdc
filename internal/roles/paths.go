package roles

import "github.com/vyayamzone/vyayam-api/internal/models"

// View paths shared by the server redirects and the client navigator.
const (
	LoginPath            = "/auth"
	TrainerDashboardPath = "/dashboards/trainer"
	PendingTrainerPath   = "/dashboards/pending-trainer"
	TrainerSignupPath    = "/dashboards/trainer/signup"
	AdminDashboardPath   = "/dashboards/admin"
	UserDashboardPath    = "/dashboards/user"
	UserSignupPath       = "/user/signup"
)

// PathFor maps a resolved role to the view that role belongs on.
// A trainer lands on the dashboard only when approved.
func PathFor(role models.Role, status models.TrainerStatus) string {
	switch role {
	case models.RoleTrainer:
		if status == models.TrainerApproved {
			return TrainerDashboardPath
		}
		return PendingTrainerPath
	case models.RoleAdmin:
		return AdminDashboardPath
	case models.RoleUser:
		return UserDashboardPath
	default:
		return LoginPath
	}
}

// ApplicationPath is where the trainer application flow sends an identity
// given the status of its trainer profile. Rejected and absent applications
// go back to the application form.
func ApplicationPath(status models.TrainerStatus) string {
	switch status {
	case models.TrainerPending:
		return PendingTrainerPath
	case models.TrainerApproved:
		return TrainerDashboardPath
	default:
		return TrainerSignupPath
	}
}
