package postgres_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	authPostgres "github.com/frahmantamala/teamspace/internal/auth/postgres"
	accountDatamodel "github.com/frahmantamala/teamspace/internal/core/datamodel/account"
	"github.com/frahmantamala/teamspace/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestAuthPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Postgres Suite")
}

var _ = Describe("Auth Repository", func() {
	var (
		db   *gorm.DB
		repo auth.RepositoryAPI
		ctx  context.Context
	)

	signup := func(username, slug, token string) *auth.SignupResult {
		res, err := repo.Signup(ctx, auth.SignupParams{
			OrganizationSlug: slug,
			OrganizationName: slug,
			Name:             username,
			Username:         username,
			Email:            username + "@example.com",
			PasswordHash:     "hash",
			SessionToken:     token,
			SessionExpiresAt: time.Now().UTC().Add(time.Hour),
		})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	BeforeEach(func() {
		var err error
		db, err = testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		repo = authPostgres.NewRepository(db)
		ctx = context.Background()
	})

	Describe("Signup", func() {
		It("makes the organization's first user its admin", func() {
			res := signup("alice", "acme", "tok-a")
			Expect(res.CreatedOrganization).To(BeTrue())
			Expect(res.Membership.Role).To(Equal(string(internal.RoleAdmin)))
			Expect(res.Organization.ID).To(BeNumerically(">", 0))
			Expect(res.User.ID).To(BeNumerically(">", 0))
		})

		It("joins later signups to the existing organization as members", func() {
			first := signup("alice", "acme", "tok-a")
			second := signup("bob", "acme", "tok-b")

			Expect(second.CreatedOrganization).To(BeFalse())
			Expect(second.Organization.ID).To(Equal(first.Organization.ID))
			Expect(second.Membership.Role).To(Equal(string(internal.RoleMember)))

			var count int64
			Expect(db.Model(&accountDatamodel.Organization{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("reports a taken username and rolls the organization back", func() {
			signup("alice", "acme", "tok-a")

			_, err := repo.Signup(ctx, auth.SignupParams{
				OrganizationSlug: "globex",
				OrganizationName: "Globex",
				Name:             "Alice Two",
				Username:         "alice",
				Email:            "other@example.com",
				PasswordHash:     "hash",
				SessionToken:     "tok-c",
				SessionExpiresAt: time.Now().UTC().Add(time.Hour),
			})
			Expect(err).To(MatchError(auth.ErrDuplicateUser))

			org, err := repo.GetOrganizationBySlug(ctx, "globex")
			Expect(err).NotTo(HaveOccurred())
			Expect(org).To(BeNil())

			usernameTaken, emailTaken, err := repo.FindUserConflicts(ctx, "alice", "other@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(usernameTaken).To(BeTrue())
			Expect(emailTaken).To(BeFalse())
		})
	})

	Describe("Signup under contention", func() {
		const racers = 8

		It("creates one organization with one admin when signups race on a new slug", func() {
			shared, err := testutil.OpenSQLiteFile(filepath.Join(GinkgoT().TempDir(), "race.db"), racers)
			Expect(err).NotTo(HaveOccurred())
			sqlDB, err := shared.DB()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(sqlDB.Close)

			service := auth.NewService(
				authPostgres.NewRepository(shared),
				auth.NewCredentialStore(bcrypt.MinCost),
				time.Hour,
				slog.New(slog.NewTextHandler(io.Discard, nil)),
			)

			var (
				wg       sync.WaitGroup
				start    = make(chan struct{})
				sessions = make([]*auth.Session, racers)
				errs     = make([]error, racers)
			)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					<-start
					username := fmt.Sprintf("racer%d", i)
					sessions[i], errs[i] = service.Signup(ctx, auth.SignupDTO{
						Name:         username,
						Username:     username,
						Email:        username + "@example.com",
						Password:     "correct-horse",
						Organization: "initech",
					})
				}(i)
			}
			close(start)
			wg.Wait()

			admins := 0
			for i := 0; i < racers; i++ {
				Expect(errs[i]).NotTo(HaveOccurred())
				Expect(sessions[i].Identity.OrganizationSlug).To(Equal("initech"))
				if sessions[i].Identity.Role == internal.RoleAdmin {
					admins++
				}
			}
			Expect(admins).To(Equal(1))

			var orgs int64
			Expect(shared.Model(&accountDatamodel.Organization{}).Where("slug = ?", "initech").Count(&orgs).Error).To(Succeed())
			Expect(orgs).To(Equal(int64(1)))

			var adminRows, memberRows int64
			Expect(shared.Model(&accountDatamodel.Membership{}).Where("role = ?", "admin").Count(&adminRows).Error).To(Succeed())
			Expect(shared.Model(&accountDatamodel.Membership{}).Where("role = ?", "member").Count(&memberRows).Error).To(Succeed())
			Expect(adminRows).To(Equal(int64(1)))
			Expect(memberRows).To(Equal(int64(racers - 1)))
		})
	})

	Describe("Lookups", func() {
		It("finds users by username or email", func() {
			res := signup("alice", "acme", "tok-a")

			byName, err := repo.GetUserByIdentifier(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(res.User.ID))

			byEmail, err := repo.GetUserByIdentifier(ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(res.User.ID))

			missing, err := repo.GetUserByIdentifier(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeNil())
		})

		It("returns nil for a missing membership", func() {
			res := signup("alice", "acme", "tok-a")
			other := signup("bob", "globex", "tok-b")

			m, err := repo.GetMembership(ctx, res.User.ID, other.Organization.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(m).To(BeNil())
		})
	})

	Describe("Sessions", func() {
		It("joins the session with its organization and current role", func() {
			res := signup("alice", "acme", "tok-a")

			rec, err := repo.GetSessionRecord(ctx, "tok-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).NotTo(BeNil())
			Expect(rec.UserID).To(Equal(res.User.ID))
			Expect(rec.OrganizationSlug).To(Equal("acme"))
			Expect(rec.Role).NotTo(BeNil())
			Expect(*rec.Role).To(Equal("admin"))

			Expect(db.Model(&accountDatamodel.Membership{}).
				Where("user_id = ?", res.User.ID).
				Update("role", "member").Error).To(Succeed())

			rec, err = repo.GetSessionRecord(ctx, "tok-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(*rec.Role).To(Equal("member"))
		})

		It("leaves the role empty once the membership is removed", func() {
			res := signup("alice", "acme", "tok-a")
			Expect(db.Where("user_id = ?", res.User.ID).Delete(&accountDatamodel.Membership{}).Error).To(Succeed())

			rec, err := repo.GetSessionRecord(ctx, "tok-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Role).To(BeNil())
		})

		It("creates and deletes sessions", func() {
			res := signup("alice", "acme", "tok-a")

			Expect(repo.CreateSession(ctx, &accountDatamodel.Session{
				ID:             "tok-new",
				UserID:         res.User.ID,
				OrganizationID: res.Organization.ID,
				ExpiresAt:      time.Now().UTC().Add(time.Hour),
			})).To(Succeed())

			rec, err := repo.GetSessionRecord(ctx, "tok-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).NotTo(BeNil())

			Expect(repo.DeleteSession(ctx, "tok-new")).To(Succeed())
			rec, err = repo.GetSessionRecord(ctx, "tok-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})
	})
})
