package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-docshare-client/auth"
	"github.com/jrsteele09/go-docshare-client/courses"
	"github.com/jrsteele09/go-docshare-client/documents"
	"github.com/jrsteele09/go-docshare-client/internal/utils"
)

type subcommand func(ctx context.Context, a *app, args []string) error

var docsCommands = map[string]subcommand{
	"list":     docsList,
	"mine":     docsMine,
	"show":     docsShow,
	"upload":   docsUpload,
	"edit":     docsEdit,
	"delete":   docsDelete,
	"download": func(ctx context.Context, a *app, args []string) error { return docsFetch(ctx, a, args, false) },
	"preview":  func(ctx context.Context, a *app, args []string) error { return docsFetch(ctx, a, args, true) },
}

func docsCmd(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "docs", docsCommands, args)
}

func dispatch(ctx context.Context, a *app, group string, subs map[string]subcommand, args []string) error {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(args) == 0 {
		return usageError(group + " " + strings.Join(names, "|"))
	}
	sub, ok := subs[args[0]]
	if !ok {
		return usageError(fmt.Sprintf("%s: unknown subcommand %q, want %s", group, args[0], strings.Join(names, "|")))
	}
	return sub(ctx, a, args[1:])
}

func docsList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("docs list", "[--search text] [--course id|domain] [--domain text] [--limit n] [--sort recent|popular|title]")
	search := fs.String("search", "", "match title or description")
	course := fs.String("course", "", "course id or domain")
	domain := fs.String("domain", "", "course domain substring")
	limit := fs.Int("limit", 0, "maximum number of documents")
	sortBy := fs.String("sort", "recent", "recent, popular or title")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	order, err := documents.ParseSortBy(*sortBy)
	if err != nil {
		return usageError("docs list: " + err.Error())
	}

	params := documents.ListParams{Search: *search, Domain: *domain, Limit: *limit}
	if *course != "" {
		if params.Course, err = a.resolveCourse(ctx, *course); err != nil {
			return err
		}
	}

	list, err := a.client.API.ListDocuments(ctx, params)
	if err != nil {
		return err
	}
	return a.printDocuments(documents.Sort(list, order))
}

func docsMine(ctx context.Context, a *app, args []string) error {
	fs := a.flags("docs mine", "[--sort recent|popular|title]")
	sortBy := fs.String("sort", "recent", "recent, popular or title")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	order, err := documents.ParseSortBy(*sortBy)
	if err != nil {
		return usageError("docs mine: " + err.Error())
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	list, err := a.client.API.MyDocuments(ctx)
	if err != nil {
		return err
	}
	return a.printDocuments(documents.Sort(list, order))
}

func docsShow(ctx context.Context, a *app, args []string) error {
	positional, err := parse(a.flags("docs show", "<id>"), args)
	if err != nil {
		return err
	}
	id, err := oneID("docs show", positional)
	if err != nil {
		return err
	}

	doc, err := a.client.API.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return a.printDocument(doc)
}

func docsUpload(ctx context.Context, a *app, args []string) error {
	fs := a.flags("docs upload", "--title text --course id|domain [--description text] <file.pdf>")
	title := fs.String("title", "", "document title, defaults to the file name")
	description := fs.String("description", "", "description")
	course := fs.String("course", "", "course id or domain")
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return usageError("docs upload --title text --course id|domain <file.pdf>")
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	path := positional[0]
	if *title == "" {
		*title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	var courseID int64
	if *course != "" {
		if courseID, err = a.resolveCourse(ctx, *course); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return &failure{msg: err.Error(), err: err}
	}
	defer f.Close()

	upload := documents.Upload{
		Title:       *title,
		Description: *description,
		CourseID:    courseID,
		FileName:    filepath.Base(path),
		File:        f,
	}
	if errs := auth.NewValidator().ValidateUpload(upload); errs != nil {
		return invalidInput(errs)
	}

	doc, err := a.client.API.UploadDocument(ctx, upload)
	if err != nil {
		return apiFailure(err)
	}
	return a.printDocument(doc)
}

func docsEdit(ctx context.Context, a *app, args []string) error {
	fs := a.flags("docs edit", "<id> [--title text] [--description text] [--course id|domain]")
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	course := fs.String("course", "", "new course id or domain")
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := oneID("docs edit", positional)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	set := setFlags(fs)
	var update documents.Update
	if set["title"] {
		update.Title = utils.Ptr(*title)
	}
	if set["description"] {
		update.Description = utils.Ptr(*description)
	}
	if set["course"] {
		courseID, err := a.resolveCourse(ctx, *course)
		if err != nil {
			return err
		}
		update.CourseID = utils.Ptr(courseID)
	}
	if update.Title == nil && update.Description == nil && update.CourseID == nil {
		return usageError("docs edit: nothing to change")
	}

	doc, err := a.client.API.UpdateDocument(ctx, id, update)
	if err != nil {
		return apiFailure(err)
	}
	return a.printDocument(doc)
}

func docsDelete(ctx context.Context, a *app, args []string) error {
	positional, err := parse(a.flags("docs delete", "<id>"), args)
	if err != nil {
		return err
	}
	id, err := oneID("docs delete", positional)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	if err := a.client.API.DeleteDocument(ctx, id); err != nil {
		return apiFailure(err)
	}
	return a.print(map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "document %d deleted\n", id)
	})
}

// docsFetch saves a document under --dir or -o, or prints its URL.
func docsFetch(ctx context.Context, a *app, args []string, preview bool) error {
	name := "docs download"
	fetch := a.client.API.Download
	address := a.client.API.DownloadURL
	if preview {
		name = "docs preview"
		fetch = a.client.API.Preview
		address = a.client.API.PreviewURL
	}

	fs := a.flags(name, "<id> [-o file|-] [--dir path] [--url]")
	out := fs.String("o", "", "output file, - writes to stdout")
	dir := fs.String("dir", ".", "directory used when -o is not given")
	urlOnly := fs.Bool("url", false, "print the URL instead of fetching")
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := oneID(name, positional)
	if err != nil {
		return err
	}

	if *urlOnly {
		u := address(id)
		return a.print(map[string]string{"url": u}, func(w io.Writer) {
			fmt.Fprintln(w, u)
		})
	}
	if *out == "-" {
		_, err := fetch(ctx, id, a.stdout)
		return err
	}

	targetDir := *dir
	if *out != "" {
		targetDir = filepath.Dir(*out)
	}
	tmp, err := os.CreateTemp(targetDir, ".docshare-*.pdf")
	if err != nil {
		return &failure{msg: err.Error(), err: err}
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	filename, err := fetch(ctx, id, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = filepath.Join(*dir, filename)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return &failure{msg: err.Error(), err: err}
	}
	return a.print(map[string]string{"file": target}, func(w io.Writer) {
		fmt.Fprintf(w, "saved %s\n", target)
	})
}

// resolveCourse accepts a numeric id or a course domain slug.
func (a *app) resolveCourse(ctx context.Context, value string) (int64, error) {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		if id <= 0 {
			return 0, usageError(fmt.Sprintf("invalid course %q", value))
		}
		return id, nil
	}
	list, err := a.client.API.ListCourses(ctx)
	if err != nil {
		return 0, err
	}
	course := courses.FindByDomain(list, value)
	if course == nil {
		return 0, &failure{msg: fmt.Sprintf("no course with domain %q", value)}
	}
	return course.ID, nil
}

func (a *app) printDocuments(list []documents.Summary) error {
	if list == nil {
		list = []documents.Summary{}
	}
	return a.print(list, func(w io.Writer) {
		if len(list) == 0 {
			fmt.Fprintln(w, "no documents")
			return
		}
		fmt.Fprintln(w, "ID\tTITLE\tCOURSE\tUPLOADER\tSIZE\tDOWNLOADS\tCREATED")
		for _, d := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f MB\t%d\t%s\n",
				d.ID, d.Title, d.CourseName, d.UploadedByUsername, d.FileSizeMB, d.DownloadCount, d.CreatedAt.Format("2006-01-02"))
		}
	})
}

func (a *app) printDocument(d *documents.Document) error {
	return a.print(d, func(w io.Writer) {
		fmt.Fprintf(w, "id:\t%d\n", d.ID)
		fmt.Fprintf(w, "title:\t%s\n", d.Title)
		fmt.Fprintf(w, "description:\t%s\n", d.Description)
		fmt.Fprintf(w, "course:\t%s (%s)\n", d.Course.Name, d.Course.Domain)
		fmt.Fprintf(w, "uploaded by:\t%s\n", d.UploadedBy.Username)
		fmt.Fprintf(w, "size:\t%.2f MB\n", d.FileSizeMB)
		fmt.Fprintf(w, "downloads:\t%d\n", d.DownloadCount)
		fmt.Fprintf(w, "created:\t%s\n", d.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "download:\t%s\n", a.client.API.DownloadURL(d.ID))
	})
}
