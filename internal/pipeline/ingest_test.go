package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orutra11/strava-data-analysis/internal/model"
)

func leaderboardHTML(rows ...[2]string) string {
	out := `<div id="results"><table><tbody>`
	for i, r := range rows {
		out += fmt.Sprintf(
			`<tr data-tracking-properties='{"athlete_id":%s,"activity_id":%s,"segment_effort_id":%d,"rank":%d}'><td>row</td></tr>`,
			r[0], r[1], 3000+i, i+1)
	}
	out += `</tbody></table><ul class="pagination"><li class="next_page disabled"><a>n</a></li></ul></div>`
	return out
}

func activityHTML(athleteID, athleteName, activityName string) string {
	return fmt.Sprintf(`<body>
<section id="heading">
  <header><h2><a href="https://www.strava.com/athletes/%s">%s</a></h2></header>
  <div class="details-container">
    <time>domingo, 12 de mayo de 2024</time>
    <h1 class="activity-name">%s</h1>
  </div>
  <div class="activity-stats"><ul>
    <li><strong>42,4 km</strong></li>
    <li><strong>3:05:24</strong></li>
    <li><strong>4:22 /km</strong></li>
  </ul></div>
</section>
<div class="mile-splits"><table><tbody>
  <tr><td>21</td><td>4:20 /km</td><td>12 m</td></tr>
  <tr><td>42</td><td>4:24 /km</td><td>-4 m</td></tr>
</tbody></table></div>
</body>`, athleteID, athleteName, activityName)
}

// fakeSession serves canned HTML keyed by the last navigated URL; redirects
// model the site forwarding an effort link to its activity page.
type fakeSession struct {
	pages     map[string]string
	redirects map[string]string
	current   string
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	if target, ok := f.redirects[url]; ok {
		f.current = target
		return nil
	}
	f.current = url
	return nil
}

func (f *fakeSession) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}

func (f *fakeSession) WaitHidden(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}

func (f *fakeSession) Click(ctx context.Context, sel string) error { return nil }

func (f *fakeSession) HTML(ctx context.Context, sel string) (string, error) {
	html, ok := f.pages[f.current]
	if !ok {
		return "", fmt.Errorf("no page for %s", f.current)
	}
	return html, nil
}

func (f *fakeSession) Location(ctx context.Context) (string, error) { return f.current, nil }
func (f *fakeSession) Close() error                                 { return nil }

// fakeRepo is an in-memory Repository recording every write.
type fakeRepo struct {
	athletes      map[string]model.Athlete
	activities    map[string]model.Activity
	splits        map[string][]model.Split
	athleteSaves  int
	activitySaves int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		athletes:   map[string]model.Athlete{},
		activities: map[string]model.Activity{},
		splits:     map[string][]model.Split{},
	}
}

func (r *fakeRepo) Init(ctx context.Context) error { return nil }

func (r *fakeRepo) AthleteIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(r.athletes))
	for id := range r.athletes {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (r *fakeRepo) ActivityIDs(ctx context.Context) (map[string]struct{}, error) {
	ids := make(map[string]struct{}, len(r.activities))
	for id := range r.activities {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (r *fakeRepo) SaveAthlete(ctx context.Context, a model.Athlete) error {
	r.athleteSaves++
	if _, ok := r.athletes[a.ID]; !ok {
		r.athletes[a.ID] = a
	}
	return nil
}

func (r *fakeRepo) SaveActivity(ctx context.Context, act model.Activity, splits []model.Split) error {
	r.activitySaves++
	r.activities[act.ID] = act
	r.splits[act.ID] = splits
	return nil
}

func (r *fakeRepo) ExportCSV(ctx context.Context, path, event string) error { return nil }
func (r *fakeRepo) DeleteActivity(ctx context.Context, id string) error     { return nil }
func (r *fakeRepo) Close() error                                            { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newSession() *fakeSession {
	return &fakeSession{pages: map[string]string{
		"https://www.strava.com/segments/seg1": leaderboardHTML(
			[2]string{"1001", "2001"},
			[2]string{"1001", "2002"},
		),
		"https://www.strava.com/activities/2001/overview": activityHTML("1001", "Shared Athlete", "First Run"),
		"https://www.strava.com/activities/2002/overview": activityHTML("1001", "Shared Athlete", "Second Run"),
	}}
}

func TestIngest(t *testing.T) {
	repo := newFakeRepo()
	p := New(repo, newSession(), quietLogger())

	report, err := p.Ingest(context.Background(), "seg1", 42.2, "Test Marathon")
	require.NoError(t, err)

	require.Equal(t, 2, report.Collected)
	require.Equal(t, 2, report.Ingested)
	require.Equal(t, 0, report.Skipped)
	require.Equal(t, 0, report.Failed)
	require.Equal(t, 1, report.NewAthletes)

	// Two activities by the same new athlete produce exactly one insert.
	require.Equal(t, 1, repo.athleteSaves)
	require.Len(t, repo.athletes, 1)
	require.Equal(t, "Shared Athlete", repo.athletes["1001"].Name)

	act := repo.activities["2001"]
	require.Equal(t, "Test Marathon", act.SearchFor)
	require.True(t, act.Valid) // 42.4 vs 42.2 is well inside 5%
	require.Equal(t, "1001", act.AthleteID)

	splits := repo.splits["2001"]
	require.Len(t, splits, 2)
	seen := map[string]bool{}
	for _, s := range splits {
		require.NotEmpty(t, s.ID)
		require.False(t, seen[s.ID], "split ids must be unique")
		seen[s.ID] = true
		require.Equal(t, "2001", s.ActivityID)
	}
	require.Equal(t, 21000, splits[0].Index)
	require.Equal(t, 42000, splits[1].Index)
}

func TestIngestIsIdempotent(t *testing.T) {
	repo := newFakeRepo()

	_, err := New(repo, newSession(), quietLogger()).Ingest(context.Background(), "seg1", 42.2, "Test Marathon")
	require.NoError(t, err)

	report, err := New(repo, newSession(), quietLogger()).Ingest(context.Background(), "seg1", 42.2, "Test Marathon")
	require.NoError(t, err)

	require.Equal(t, 2, report.Collected)
	require.Equal(t, 0, report.Ingested)
	require.Equal(t, 2, report.Skipped)
	require.Equal(t, 0, report.NewAthletes)

	require.Equal(t, 1, repo.athleteSaves)
	require.Equal(t, 2, repo.activitySaves)
}

func TestIngestSkipsDivergentResolvedActivity(t *testing.T) {
	// The tracking payload claims 9999 but the effort link lands on
	// activity 2001: the resolved id is what the store keys on.
	newDivergentSession := func() *fakeSession {
		return &fakeSession{
			pages: map[string]string{
				"https://www.strava.com/segments/seg2": `<div id="results"><table><tbody>` +
					`<tr data-tracking-properties='{"athlete_id":1001,"activity_id":9999,"segment_effort_id":3001,"rank":1}'>` +
					`<td data-tracking-element="leaderboard_effort"><a href="/segment_efforts/3001">t</a></td></tr>` +
					`</tbody></table><ul class="pagination"><li class="next_page disabled"><a>n</a></li></ul></div>`,
				"https://www.strava.com/activities/2001/segments/3001": activityHTML("1001", "Shared Athlete", "First Run"),
				"https://www.strava.com/activities/2001/overview":      activityHTML("1001", "Shared Athlete", "First Run"),
			},
			redirects: map[string]string{
				"https://www.strava.com/segment_efforts/3001": "https://www.strava.com/activities/2001/segments/3001",
			},
		}
	}

	repo := newFakeRepo()
	report, err := New(repo, newDivergentSession(), quietLogger()).Ingest(context.Background(), "seg2", 42.2, "Test Marathon")
	require.NoError(t, err)
	require.Equal(t, 1, report.Ingested)
	require.Contains(t, repo.activities, "2001")

	report, err = New(repo, newDivergentSession(), quietLogger()).Ingest(context.Background(), "seg2", 42.2, "Test Marathon")
	require.NoError(t, err)
	require.Equal(t, 0, report.Ingested)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 1, repo.activitySaves)
}

func TestIngestContinuesPastFailingCandidate(t *testing.T) {
	sess := newSession()
	// The first activity's page never renders anything usable.
	sess.pages["https://www.strava.com/activities/2001/overview"] = `<body></body>`

	repo := newFakeRepo()
	report, err := New(repo, sess, quietLogger()).Ingest(context.Background(), "seg1", 42.2, "Test Marathon")
	require.NoError(t, err)

	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Ingested)
	require.Len(t, repo.activities, 1)
	require.Contains(t, repo.activities, "2002")
}
