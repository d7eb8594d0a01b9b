package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	authPostgres "github.com/frahmantamala/teamspace/internal/auth/postgres"
	"github.com/frahmantamala/teamspace/internal/conversation"
	conversationPostgres "github.com/frahmantamala/teamspace/internal/conversation/postgres"
	"github.com/frahmantamala/teamspace/internal/core/events"
	"github.com/frahmantamala/teamspace/internal/directory"
	directoryPostgres "github.com/frahmantamala/teamspace/internal/directory/postgres"
	"github.com/frahmantamala/teamspace/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	seedOrganization string
	seedPassword     string
)

type seedUser struct {
	Name     string
	Username string
	Email    string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Seed a demo organization with an admin, two members, a Finance department
and a thread bound to it. Existing users are logged in instead of re-created.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initGorm(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		ctx := context.Background()
		lg := logger.LoggerWrapper()
		bus := events.Discard{}

		authService := auth.NewService(authPostgres.NewRepository(db), auth.NewCredentialStore(cfg.Security.BCryptCost), cfg.Security.SessionTTL, lg)
		directoryService := directory.NewService(directoryPostgres.NewRepository(db), bus, lg)
		conversationService := conversation.NewService(conversationPostgres.NewRepository(db), bus, lg)

		users := []seedUser{
			{Name: "Padil Admin", Username: "padil", Email: "padil@mail.com"},
			{Name: "Fadhil", Username: "fadhil", Email: "fadhil@mail.com"},
			{Name: "Rina", Username: "rina", Email: "rina@mail.com"},
		}

		sessions := make([]*auth.Session, 0, len(users))
		for _, u := range users {
			sess, err := ensureUser(ctx, authService, u)
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Username, err)
			}
			fmt.Printf("Seeded %s (%s) in %s as %s\n", u.Username, u.Email, sess.Identity.OrganizationSlug, sess.Identity.Role)
			sessions = append(sessions, sess)
		}

		admin := &sessions[0].Identity
		if admin.Role != internal.RoleAdmin {
			log.Fatalf("%s is not admin of %s; seed a fresh organization with --org", users[0].Username, seedOrganization)
		}

		finance, err := directoryService.CreateContainer(ctx, admin, directory.KindDepartment, directory.ContainerDTO{Name: "Finance"})
		if err != nil {
			var appErr *internal.AppError
			if errors.As(err, &appErr) && appErr.Type == internal.ErrorTypeValidation {
				fmt.Println("Finance department already exists; skipping the rest")
				return
			}
			log.Fatalf("failed to create department: %v", err)
		}
		fmt.Println("Seeded department:", finance.Name)

		if err := directoryService.AddContainerMember(ctx, admin, directory.KindDepartment, finance.ID, directory.AddMemberDTO{UserID: sessions[1].Identity.UserID}); err != nil {
			log.Fatalf("failed to add department member: %v", err)
		}

		thread, err := conversationService.CreateThread(ctx, admin, conversation.CreateThreadDTO{
			Title:        "Quarter close",
			DepartmentID: &finance.ID,
		})
		if err != nil {
			log.Fatalf("failed to create thread: %v", err)
		}

		if _, err := conversationService.Append(ctx, &sessions[1].Identity, thread.ID, conversation.AppendMessageDTO{
			Kind: string(conversation.KindText),
			Body: []byte(`{"text":"Ledger is reconciled."}`),
		}); err != nil {
			log.Fatalf("failed to post message: %v", err)
		}
		fmt.Printf("Seeded thread %q visible to Finance (%s cannot see it)\n", thread.Title, users[2].Username)

		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	},
}

func ensureUser(ctx context.Context, svc *auth.Service, u seedUser) (*auth.Session, error) {
	sess, err := svc.Login(ctx, auth.LoginDTO{Identifier: u.Username, Password: seedPassword, Organization: seedOrganization})
	if err == nil {
		return sess, nil
	}
	return svc.Signup(ctx, auth.SignupDTO{
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		Password:     seedPassword,
		Organization: seedOrganization,
	})
}

func init() {
	seedCmd.Flags().StringVar(&seedOrganization, "org", "acme", "organization slug to seed")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "password for every seeded user")
}
