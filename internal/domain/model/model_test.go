package model_test

import (
	"context"
	"testing"

	"github.com/internalign/skillmatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRequirementsFromMap(t *testing.T) {
	Convey("Given a skill weight map", t, func() {
		weights := map[string]int{"sql": 30, "python": 50, "go": 20}

		Convey("When converting to requirements", func() {
			reqs := model.RequirementsFromMap(weights)

			Convey("Then they are ordered by skill name", func() {
				So(reqs, ShouldResemble, []model.SkillRequirement{
					{Skill: "go", Weight: 20},
					{Skill: "python", Weight: 50},
					{Skill: "sql", Weight: 30},
				})
			})

			Convey("And the project reports its max score and skills", func() {
				p := model.Project{Requirements: reqs}
				So(p.MaxScore(), ShouldEqual, 100)
				So(p.Skills(), ShouldContainKey, "python")
				So(len(p.Skills()), ShouldEqual, 3)
			})
		})

		Convey("When the map is empty", func() {
			reqs := model.RequirementsFromMap(nil)

			Convey("Then the requirements are empty and max score is zero", func() {
				So(reqs, ShouldBeEmpty)
				So(model.Project{Requirements: reqs}.MaxScore(), ShouldEqual, 0)
			})
		})
	})
}

func TestIdentityContext(t *testing.T) {
	Convey("Given a context without identity", t, func() {
		ctx := context.Background()

		Convey("Then lookup fails", func() {
			_, ok := model.IdentityFrom(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("When an identity is attached", func() {
			ctx = model.WithIdentity(ctx, model.Identity{UserID: "u-1", Role: model.RoleCompany})
			id, ok := model.IdentityFrom(ctx)

			Convey("Then it round-trips with its role checks", func() {
				So(ok, ShouldBeTrue)
				So(id.UserID, ShouldEqual, "u-1")
				So(id.CanManageProjects(), ShouldBeTrue)
				So(id.IsCandidate(), ShouldBeFalse)
			})
		})

		Convey("Then candidates cannot manage projects", func() {
			id := model.Identity{UserID: "c-1", Role: model.RoleCandidate}
			So(id.CanManageProjects(), ShouldBeFalse)
			So(id.IsCandidate(), ShouldBeTrue)
		})
	})
}
