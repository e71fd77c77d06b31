// internal/seed/seed.go
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/Marga-Ghale/ora-collab-backend/internal/types"
)

const seedPassword = "password123"

// SeedData creates a small demo team for development databases. It runs
// through the services so the data obeys the same rules as API traffic, and
// does nothing once any user exists.
func SeedData(ctx context.Context, services *service.Services, repos *repository.Repositories) error {
	count, err := repos.UserRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Println("[Seed] Data already exists, skipping...")
		return nil
	}

	log.Println("[Seed] 🌱 Creating initial data...")

	// The first registrant becomes the system admin.
	marga, err := register(ctx, services, "Marga Ghale", "marga.ghale@oratechnologies.io")
	if err != nil {
		return err
	}
	bipin, err := register(ctx, services, "Bipin Dhimal", "bipin.dhimal@oratechnologies.io")
	if err != nil {
		return err
	}
	kritim, err := register(ctx, services, "Kritim Kafle", "kritim.kafle@oratechnologies.io")
	if err != nil {
		return err
	}

	owner := service.Identity{UserID: marga.ID, Role: marga.Role}
	deadline := time.Now().AddDate(0, 1, 0)
	description := "Realtime collaboration backend"

	project, err := services.Project.Create(ctx, owner, service.CreateProjectInput{
		Name:        "ORA Collab",
		Description: &description,
		Status:      types.ProjectActive,
		Deadline:    &deadline,
		MemberIDs:   []string{bipin.ID},
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if _, err := services.Project.AddMember(ctx, owner, project.ID, service.AddMemberInput{
		Email: kritim.Email,
		Role:  types.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("add member: %w", err)
	}

	tasks := []struct {
		title    string
		status   string
		priority string
		due      time.Duration
		assignee string
	}{
		{"Design database schema", types.StatusDone, types.PriorityHigh, -72 * time.Hour, marga.ID},
		{"Implement JWT authentication", types.StatusReview, types.PriorityUrgent, 12 * time.Hour, bipin.ID},
		{"Build websocket hub", types.StatusInProgress, types.PriorityHigh, 3 * 24 * time.Hour, kritim.ID},
		{"Write API documentation", types.StatusTodo, types.PriorityMedium, 10 * 24 * time.Hour, ""},
		{"Fix flaky notification test", types.StatusTodo, types.PriorityLow, -24 * time.Hour, bipin.ID},
	}

	for _, t := range tasks {
		due := time.Now().Add(t.due)
		in := service.CreateTaskInput{
			Title:    t.title,
			DueDate:  &due,
			Status:   t.status,
			Priority: t.priority,
		}
		if t.assignee != "" {
			assignee := t.assignee
			in.AssigneeID = &assignee
		}
		if _, err := services.Task.Create(ctx, owner, project.ID, in); err != nil {
			return fmt.Errorf("create task %q: %w", t.title, err)
		}
	}

	comment, err := services.Comment.Create(ctx, owner, project.ID,
		fmt.Sprintf("Schema is merged. @%s can you review the auth flow?", bipin.Email), nil)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	reviewer := service.Identity{UserID: bipin.ID, Role: bipin.Role}
	if _, err := services.Comment.Create(ctx, reviewer, project.ID, "On it, will finish today.", &comment.ID); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}

	log.Printf("[Seed] ✅ Created 3 users, project %q with %d tasks (password: %s)", project.Name, len(tasks), seedPassword)
	return nil
}

func register(ctx context.Context, services *service.Services, name, email string) (*repository.User, error) {
	user, _, err := services.Auth.Register(ctx, name, email, seedPassword)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	return user, nil
}
