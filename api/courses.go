package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-docshare-client/courses"
)

const coursesPath = "/courses/"

func coursePath(id int64) string {
	return coursesPath + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) ListCourses(ctx context.Context) ([]courses.Course, error) {
	return getList[courses.Course](ctx, c, "ListCourses", coursesPath, nil)
}

func (c *Client) GetCourse(ctx context.Context, id int64) (*courses.Course, error) {
	var course courses.Course
	if err := c.doJSON(ctx, "GetCourse", http.MethodGet, coursePath(id), nil, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) CreateCourse(ctx context.Context, in courses.Input) (*courses.Course, error) {
	var course courses.Course
	if err := c.doJSON(ctx, "CreateCourse", http.MethodPost, coursesPath, nil, in, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse is a partial update; nil fields are left as they are.
func (c *Client) UpdateCourse(ctx context.Context, id int64, in courses.Input) (*courses.Course, error) {
	var course courses.Course
	if err := c.doJSON(ctx, "UpdateCourse", http.MethodPatch, coursePath(id), nil, in, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) DeleteCourse(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "DeleteCourse", http.MethodDelete, coursePath(id), nil, nil, nil)
}
