package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	. "github.com/tahsilhub/tahsil/apps/api/echo"
	"github.com/tahsilhub/tahsil/core/schedule"
	"github.com/tahsilhub/tahsil/core/user"
)

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func seedSyllabus(courseID uuid.UUID, names ...string) {
	topics := make([]schedule.SyllabusTopic, len(names))
	for i, name := range names {
		topics[i] = schedule.SyllabusTopic{
			ID:          uuid.New(),
			CourseID:    courseID,
			OrderNumber: i + 1,
			Name:        name,
		}
	}
	db.SetSyllabus(courseID, topics)
}

func Test_scheduleApi_groupCreate(t *testing.T) {
	db.Reset()

	admin := createUser(t, "Admin", "admusr", "admin@test.az", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, "Teacher", "teausr", "teacher@test.az", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)

	courseID := uuid.New()
	seedSyllabus(courseID, "Variables", "Conditionals", "Loops")

	// two weeks, one Wednesday lecture slot -> 2 lessons
	newGroup := func(name string, status schedule.GroupStatus) schedule.NewGroup {
		return schedule.NewGroup{
			Name:      name,
			CourseID:  courseID,
			TeacherID: teacher.ID,
			StartDate: datePtr(2021, time.March, 1),
			EndDate:   datePtr(2021, time.March, 14),
			Slots: []schedule.TemplateSlot{
				{DayOfWeek: 3, StartTime: "18:00", EndTime: "20:00"},
			},
			Status: status,
		}
	}

	// admin only
	req, rr := newAuthRequest(http.MethodPost, "/v1/groups", getToken(t, teacher), marchallObj(t, newGroup("GR-1", schedule.GroupCurrent)))
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rr)

	// bad slot times are rejected
	bad := newGroup("GR-1", schedule.GroupCurrent)
	bad.Slots[0].StartTime = "25:99"
	req, rr = newAuthRequest(http.MethodPost, "/v1/groups", adminToken, marchallObj(t, bad))
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code = %v; want %v; body %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}

	// end before start is rejected
	bad = newGroup("GR-1", schedule.GroupCurrent)
	bad.EndDate = datePtr(2021, time.February, 1)
	req, rr = newAuthRequest(http.MethodPost, "/v1/groups", adminToken, marchallObj(t, bad))
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"end_date": "must not precede start_date"}),
	}, rr)

	// created: lessons generated right away
	req, rr = newAuthRequest(http.MethodPost, "/v1/groups", adminToken, marchallObj(t, newGroup("GR-1", schedule.GroupCurrent)))
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	var resp GroupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Group.ID == uuid.Nil {
		t.Error("failed! group has no ID")
	}
	if resp.Generation.Created != 2 {
		t.Errorf("Generation.Created = %d; want 2", resp.Generation.Created)
	}

	// duplicate name
	req, rr = newAuthRequest(http.MethodPost, "/v1/groups", adminToken, marchallObj(t, newGroup("GR-1", schedule.GroupCurrent)))
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"name": "a group with this name already exists"}),
	}, rr)

	// waiting groups produce no lessons
	req, rr = newAuthRequest(http.MethodPost, "/v1/groups", adminToken, marchallObj(t, newGroup("GR-2", schedule.GroupWaiting)))
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Generation.Created != 0 || resp.Generation.Skipped != schedule.SkipWaitingGroup {
		t.Errorf("Generation = %+v; want waiting-group skip", resp.Generation)
	}
}

func Test_scheduleApi_groupUpdateTriggersGeneration(t *testing.T) {
	db.Reset()

	admin := createUser(t, "Admin", "admusr", "admin@test.az", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	courseID := uuid.New()
	seedSyllabus(courseID, "Variables")

	// a waiting group with no dates yet
	body := marchallObj(t, schedule.NewGroup{Name: "GR-1", CourseID: courseID})
	req, rr := newAuthRequest(http.MethodPost, "/v1/groups", adminToken, body)
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	var resp GroupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Generation.Skipped != schedule.SkipMissingDates {
		t.Errorf("Generation.Skipped = %q; want %q", resp.Generation.Skipped, schedule.SkipMissingDates)
	}

	// the group goes live: dates, a Wednesday slot, current status
	update := marchallObj(t, schedule.UpdateGroup{
		StartDate: datePtr(2021, time.March, 1),
		EndDate:   datePtr(2021, time.March, 7),
		Slots: []schedule.TemplateSlot{
			{DayOfWeek: 3, StartTime: "18:00", EndTime: "20:00"},
		},
		Status: schedule.GroupCurrent,
	})
	req, rr = newAuthRequest(http.MethodPut, "/v1/groups/"+resp.Group.ID.String(), adminToken, update)
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Generation.Created != 1 {
		t.Errorf("Generation.Created = %d; want 1", resp.Generation.Created)
	}

	// a second update is a generation no-op
	req, rr = newAuthRequest(http.MethodPut, "/v1/groups/"+resp.Group.ID.String(), adminToken, marchallObj(t, schedule.UpdateGroup{Name: "GR-1 renamed"}))
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if resp.Generation.Skipped != schedule.SkipAlreadyGenerated {
		t.Errorf("Generation.Skipped = %q; want %q", resp.Generation.Skipped, schedule.SkipAlreadyGenerated)
	}
	if resp.Group.Name != "GR-1 renamed" {
		t.Errorf("Name = %q; want %q", resp.Group.Name, "GR-1 renamed")
	}
}

func Test_scheduleApi_groupRetrieveAndLessons(t *testing.T) {
	db.Reset()

	admin := createUser(t, "Admin", "admusr", "admin@test.az", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, "Teacher", "teausr", "teacher@test.az", "", []string{user.RoleTeacher}, true)
	student := createUser(t, "Hero", "herousr", "hero@test.az", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	courseID := uuid.New()
	seedSyllabus(courseID, "Variables", "Conditionals")

	body := marchallObj(t, schedule.NewGroup{
		Name:       "GR-1",
		CourseID:   courseID,
		TeacherID:  teacher.ID,
		StudentIDs: []uuid.UUID{student.ID},
		StartDate:  datePtr(2021, time.March, 1),
		EndDate:    datePtr(2021, time.March, 14),
		Slots: []schedule.TemplateSlot{
			{DayOfWeek: 1, StartTime: "18:00", EndTime: "20:00"},
			{DayOfWeek: 6, StartTime: "10:00", EndTime: "12:00", Practical: true},
		},
		Status: schedule.GroupCurrent,
	})
	req, rr := newAuthRequest(http.MethodPost, "/v1/groups", adminToken, body)
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	var created GroupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	groupID := created.Group.ID

	// students may not browse groups
	req, rr = newAuthRequest(http.MethodGet, "/v1/groups/"+groupID.String(), getToken(t, student))
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rr)

	// teachers may read
	req, rr = newAuthRequest(http.MethodGet, "/v1/groups/"+groupID.String(), getToken(t, teacher))
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	var g schedule.Group
	if err := json.Unmarshal(rr.Body.Bytes(), &g); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if g.Name != "GR-1" || len(g.Slots) != 2 {
		t.Errorf("unexpected group %+v", g)
	}

	// unknown group
	req, rr = newAuthRequest(http.MethodGet, "/v1/groups/"+uuid.New().String(), adminToken)
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rr)

	// lessons: 2 Monday lectures + 2 Saturday practicals
	req, rr = newAuthRequest(http.MethodGet, "/v1/groups/"+groupID.String()+"/lessons", adminToken)
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	var resp LessonsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if len(resp.Lessons) != 4 {
		t.Fatalf("len(Lessons) = %d; want 4", len(resp.Lessons))
	}
	var lectures, practicals int
	for _, l := range resp.Lessons {
		if l.Topic == nil {
			t.Errorf("lesson on %s has no topic", l.Date.Format("2006-01-02"))
			continue
		}
		if l.Topic.Name == schedule.PracticalTopicName {
			practicals++
		} else {
			lectures++
		}
		if len(l.Students) != 1 || l.Students[0].StudentID != student.ID {
			t.Errorf("unexpected roster %+v", l.Students)
		}
	}
	if lectures != 2 || practicals != 2 {
		t.Errorf("lectures = %d, practicals = %d; want 2 and 2", lectures, practicals)
	}
	if resp.Counts.Confirmed != 0 || resp.Counts.Cancelled != 0 {
		t.Errorf("Counts = %+v; want zeros", resp.Counts)
	}

	// date filtering narrows to the first week
	lessonsPath := fmt.Sprintf("/v1/groups/%s/lessons?start_date=2021-03-01&end_date=2021-03-07", groupID)
	req, rr = newAuthRequest(http.MethodGet, lessonsPath, adminToken)
	app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	if len(resp.Lessons) != 2 {
		t.Errorf("len(Lessons) = %d; want 2", len(resp.Lessons))
	}

	// bogus date filter
	req, rr = newAuthRequest(http.MethodGet, "/v1/groups/"+groupID.String()+"/lessons?start_date=lol", adminToken)
	app.ServeHTTP(rr, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"start_date": "must be a date in YYYY-MM-DD format"}),
	}, rr)
}
