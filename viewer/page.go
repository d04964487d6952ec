package viewer

import (
	"database/sql"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/replay"
)

const pageStyle = `
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 0.2em 0.8em; border-bottom: 1px solid #ddd; text-align: left; }
pre.board { font-family: monospace; line-height: 1.1; letter-spacing: 0.3em; }
.warning { color: #b00; }
section.frame { display: inline-block; vertical-align: top; margin: 0 1em 1em 0; }
`

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Snake games</title><style>` + pageStyle + `</style></head>
<body>
<h1>Snake games</h1>
<p id="stats">{{.Stats.Games}} games, best score {{.Stats.BestScore}}</p>
<table id="games">
<thead><tr><th>Game</th><th>Score</th><th>Length</th><th>Turns</th><th>Board</th><th>Ended</th><th>Source</th></tr></thead>
<tbody>
{{range .Games}}<tr class="game" data-game-id="{{.GameID}}">
<td><a href="/games/{{.GameID}}">{{.GameID}}</a></td>
<td class="score">{{.Score}}</td>
<td class="length">{{.Length}}</td>
<td class="turns">{{.Turns}}</td>
<td>{{.Width}}x{{.Height}}</td>
<td class="cause">{{.Cause}}</td>
<td>{{.Source}}</td>
</tr>
{{else}}<tr><td colspan="7" id="empty">No games archived yet.</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

var gameTmpl = template.Must(template.New("game").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Game {{.GameID}}</title><style>` + pageStyle + `</style></head>
<body>
<p><a href="/">All games</a></p>
<h1 id="game-id">{{.GameID}}</h1>
{{if .Problem}}<p class="warning" id="problem">{{.Problem}}</p>{{end}}
<p id="history">{{.History}}</p>
{{range .Frames}}<section class="frame" data-seq="{{.Seq}}">
<h2>{{.Seq}}{{if .Direction}}: {{.Direction}} ({{.Outcome}}){{end}}</h2>
<pre class="board">{{.Board}}</pre>
<pre class="summary">{{.Summary}}</pre>
</section>
{{end}}
</body>
</html>
`))

type indexPage struct {
	Stats StatsResponse
	Games []GameSummary
}

type framePage struct {
	Seq       int32
	Direction string
	Outcome   string
	Board     string
	Summary   string
}

type gamePage struct {
	GameID  string
	Problem string
	History string
	Frames  []framePage
}

func (s *Server) handleIndexPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.dbCache.Refresh(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := queryStats(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	games, err := s.dbCache.GamesIndex(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, indexTmpl, indexPage{Stats: stats, Games: games})
}

// handleGamePage replays /games/{id} through the engine and shows every
// board. A replay that disagrees with the archive stops at the first bad
// row and says so.
func (s *Server) handleGamePage(w http.ResponseWriter, r *http.Request) {
	gameID, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/games/"))
	if err != nil || gameID == "" || strings.Contains(gameID, "/") {
		http.NotFound(w, r)
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows, err := queryGameRows(r.Context(), db, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page := gamePage{GameID: gameID}
	frames, err := replay.Game(rows)
	if err != nil {
		s.log.Warn("replay failed", "game_id", gameID, "error", err)
		page.Problem = err.Error()
	}
	for _, f := range frames {
		fp := framePage{Seq: f.Seq, Board: f.State.Render(), Summary: f.State.Summary()}
		if f.Direction != game.None {
			fp.Direction = f.Direction.String()
			fp.Outcome = f.Outcome.String()
		}
		page.Frames = append(page.Frames, fp)
	}
	if n := len(frames); n > 0 {
		page.History = frames[n-1].State.HistoryString()
	}
	s.render(w, gameTmpl, page)
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		s.log.Error("render page", "template", t.Name(), "error", err)
	}
}
