package user_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/core/events"
	"github.com/frahmantamala/teamspace/internal/testutil"
	"github.com/frahmantamala/teamspace/internal/user"
	userPostgres "github.com/frahmantamala/teamspace/internal/user/postgres"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

func strPtr(s string) *string { return &s }

var _ = Describe("User Service", func() {
	var (
		ctx       context.Context
		service   *user.Service
		publisher *testutil.RecordingPublisher
		member    *internal.Identity
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		org, err := testutil.CreateOrganization(db, "acme")
		Expect(err).NotTo(HaveOccurred())
		member, err = testutil.CreateMember(db, org, "rina", internal.RoleMember)
		Expect(err).NotTo(HaveOccurred())

		publisher = &testutil.RecordingPublisher{}
		repo := userPostgres.NewRepository(sqlx.NewDb(sqlDB, "sqlite3"))
		service = user.NewService(repo, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("loads the caller's profile", func() {
		p, err := service.GetProfile(ctx, member)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Username).To(Equal("rina"))
		Expect(p.Email).To(Equal("rina@example.com"))
		Expect(p.Nickname).To(BeNil())
		Expect(p.DisplayNamePref).To(Equal(user.DisplayName))
		Expect(p.DisplayName).To(Equal("rina"))
	})

	It("requires a session", func() {
		_, err := service.GetProfile(ctx, nil)
		Expect(err).To(MatchError(internal.ErrNoSession))

		_, err = service.UpdateProfile(ctx, nil, user.UpdateProfileDTO{})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeUnauthorized))
	})

	It("reports a deleted user as not found", func() {
		gone := *member
		gone.UserID = 9999
		_, err := service.GetProfile(ctx, &gone)
		Expect(err).To(MatchError(internal.ErrMemberNotFound))
	})

	It("updates only the supplied fields", func() {
		p, err := service.UpdateProfile(ctx, member, user.UpdateProfileDTO{
			Name:            strPtr("  Rina Putri "),
			Nickname:        strPtr("rin"),
			DisplayNamePref: strPtr("nickname"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name).To(Equal("Rina Putri"))
		Expect(*p.Nickname).To(Equal("rin"))
		Expect(p.DisplayName).To(Equal("rin"))
		Expect(p.AvatarRef).To(BeNil())

		p, err = service.UpdateProfile(ctx, member, user.UpdateProfileDTO{AvatarRef: strPtr("s3://avatars/rina.png")})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name).To(Equal("Rina Putri"))
		Expect(*p.AvatarRef).To(Equal("s3://avatars/rina.png"))
		Expect(p.UpdatedAt).To(BeTemporally("~", time.Now(), time.Minute))

		last := publisher.Last().(events.WorkspaceEvent)
		Expect(last.EventType()).To(Equal(events.EventTypeProfileUpdated))
		Expect(last.Organization).To(Equal("acme"))
	})

	It("clears a nickname with an empty string and falls back to the name", func() {
		_, err := service.UpdateProfile(ctx, member, user.UpdateProfileDTO{Nickname: strPtr("rin"), DisplayNamePref: strPtr("nickname")})
		Expect(err).NotTo(HaveOccurred())

		p, err := service.UpdateProfile(ctx, member, user.UpdateProfileDTO{Nickname: strPtr("")})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Nickname).To(BeNil())
		Expect(p.DisplayName).To(Equal("rina"))
	})

	It("returns the profile unchanged for an empty update", func() {
		p, err := service.UpdateProfile(ctx, member, user.UpdateProfileDTO{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name).To(Equal("rina"))
	})

	DescribeTable("rejects invalid updates",
		func(dto user.UpdateProfileDTO, field, code string) {
			_, err := service.UpdateProfile(ctx, member, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors[0].Field).To(Equal(field))
			Expect(details.Errors[0].Code).To(Equal(code))
			Expect(publisher.Types()).To(BeEmpty())
		},
		Entry("blank name", user.UpdateProfileDTO{Name: strPtr("   ")}, "name", "REQUIRED"),
		Entry("unknown display preference", user.UpdateProfileDTO{DisplayNamePref: strPtr("email")}, "display_name_pref", "INVALID_FORMAT"),
		Entry("nickname too long", user.UpdateProfileDTO{Nickname: strPtr(strings.Repeat("n", 61))}, "nickname", "TOO_LONG"),
	)
})

var _ = Describe("Profile", func() {
	DescribeTable("ResolveDisplayName",
		func(pref user.DisplayNamePref, nickname *string, want string) {
			p := &user.Profile{Name: "Rina Putri", Username: "rina", Nickname: nickname, DisplayNamePref: pref}
			Expect(p.ResolveDisplayName()).To(Equal(want))
		},
		Entry("name", user.DisplayName, strPtr("rin"), "Rina Putri"),
		Entry("nickname", user.DisplayNickname, strPtr("rin"), "rin"),
		Entry("nickname unset", user.DisplayNickname, nil, "Rina Putri"),
		Entry("username", user.DisplayUsername, nil, "rina"),
	)
})
