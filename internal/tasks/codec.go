package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/papapumpkin/taskmaster/internal/taskid"
)

// DefaultTag is the tag used when none is configured.
const DefaultTag = "master"

var taskKeys = map[string]bool{
	"id": true, "title": true, "description": true, "status": true,
	"priority": true, "details": true, "testStrategy": true,
	"dependencies": true, "subtasks": true,
}

var subtaskKeys = map[string]bool{
	"id": true, "title": true, "description": true, "status": true,
	"details": true, "testStrategy": true, "dependencies": true,
}

type taskAlias Task

// MarshalJSON writes the modeled fields followed by any preserved extras.
func (t Task) MarshalJSON() ([]byte, error) {
	a := taskAlias(t)
	if a.Dependencies == nil {
		a.Dependencies = []taskid.ID{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return appendExtra(b, t.Extra, taskKeys)
}

// UnmarshalJSON reads the modeled fields and keeps the rest in Extra.
func (t *Task) UnmarshalJSON(data []byte) error {
	var a taskAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := collectExtra(data, taskKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*t = Task(a)
	return nil
}

type subtaskAlias Subtask

// MarshalJSON writes the modeled fields followed by any preserved extras.
func (s Subtask) MarshalJSON() ([]byte, error) {
	a := subtaskAlias(s)
	if a.Dependencies == nil {
		a.Dependencies = []taskid.ID{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return appendExtra(b, s.Extra, subtaskKeys)
}

// UnmarshalJSON reads the modeled fields and keeps the rest in Extra.
func (s *Subtask) UnmarshalJSON(data []byte) error {
	var a subtaskAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := collectExtra(data, subtaskKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = Subtask(a)
	return nil
}

// Decode extracts the collection stored under tag from a tasks.json
// document. Legacy documents with a top-level "tasks" array are accepted
// regardless of tag. Shape problems are reported as ErrInvalidCollection.
func Decode(doc []byte, tag string) (*Collection, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidCollection)
	}
	root := locate(doc, tag)
	if !root.Exists() {
		return nil, fmt.Errorf("%w: no tasks found for tag %q", ErrInvalidCollection, tag)
	}
	if err := checkShape(root.Get("tasks")); err != nil {
		return nil, err
	}

	var body struct {
		Tasks    []Task          `json:"tasks"`
		Metadata json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.Unmarshal([]byte(root.Raw), &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCollection, err)
	}
	if err := checkUnique(body.Tasks); err != nil {
		return nil, err
	}
	return &Collection{Tasks: body.Tasks, Metadata: body.Metadata}, nil
}

// Encode writes c into doc under tag and returns the new document. Other
// tags in doc are preserved; a legacy document stays legacy. A nil or
// empty doc produces a fresh tagged document.
func Encode(doc []byte, tag string, c *Collection) ([]byte, error) {
	if tag == "" {
		tag = DefaultTag
	}
	top := make(map[string]json.RawMessage)
	if len(bytes.TrimSpace(doc)) > 0 {
		if err := json.Unmarshal(doc, &top); err != nil {
			return nil, fmt.Errorf("%w: existing document: %v", ErrInvalidCollection, err)
		}
	}

	legacy := gjson.GetBytes(doc, "tasks").IsArray()
	if legacy {
		if err := putBody(top, c); err != nil {
			return nil, err
		}
	} else {
		section := make(map[string]json.RawMessage)
		if raw, ok := top[tag]; ok {
			if err := json.Unmarshal(raw, &section); err != nil {
				return nil, fmt.Errorf("%w: tag %q: %v", ErrInvalidCollection, tag, err)
			}
		}
		if err := putBody(section, c); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(section)
		if err != nil {
			return nil, err
		}
		top[tag] = raw
	}

	out, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tasks document: %w", err)
	}
	return append(out, '\n'), nil
}

// Tags lists the tags present in a tagged document, sorted. Legacy
// documents report nil.
func Tags(doc []byte) []string {
	if gjson.GetBytes(doc, "tasks").IsArray() {
		return nil
	}
	var tags []string
	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		if value.Get("tasks").IsArray() {
			tags = append(tags, key.String())
		}
		return true
	})
	sort.Strings(tags)
	return tags
}

func putBody(m map[string]json.RawMessage, c *Collection) error {
	list := c.Tasks
	if list == nil {
		list = []Task{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	m["tasks"] = raw
	if len(c.Metadata) > 0 {
		m["metadata"] = c.Metadata
	}
	return nil
}

func locate(doc []byte, tag string) gjson.Result {
	if gjson.GetBytes(doc, "tasks").IsArray() {
		return gjson.ParseBytes(doc)
	}
	if tag == "" {
		tag = DefaultTag
	}
	section := gjson.GetBytes(doc, escapePath(tag))
	if !section.IsObject() || !section.Get("tasks").IsArray() {
		return gjson.Result{}
	}
	return section
}

func checkShape(list gjson.Result) error {
	if !list.IsArray() {
		return fmt.Errorf("%w: \"tasks\" must be an array", ErrInvalidCollection)
	}
	var err error
	list.ForEach(func(i, task gjson.Result) bool {
		where := fmt.Sprintf("tasks[%d]", i.Int())
		if err = checkNode(task, where); err != nil {
			return false
		}
		subs := task.Get("subtasks")
		if !subs.Exists() || subs.Type == gjson.Null {
			return true
		}
		if !subs.IsArray() {
			err = fmt.Errorf("%w: %s.subtasks must be an array", ErrInvalidCollection, where)
			return false
		}
		subs.ForEach(func(j, sub gjson.Result) bool {
			err = checkNode(sub, fmt.Sprintf("%s.subtasks[%d]", where, j.Int()))
			return err == nil
		})
		return err == nil
	})
	return err
}

func checkNode(node gjson.Result, where string) error {
	if !node.IsObject() {
		return fmt.Errorf("%w: %s must be an object", ErrInvalidCollection, where)
	}
	id := node.Get("id")
	if id.Type != gjson.Number || id.Num != float64(int64(id.Num)) || id.Num <= 0 {
		return fmt.Errorf("%w: %s.id must be a positive integer", ErrInvalidCollection, where)
	}
	deps := node.Get("dependencies")
	if !deps.Exists() || deps.Type == gjson.Null {
		return nil
	}
	if !deps.IsArray() {
		return fmt.Errorf("%w: %s.dependencies must be an array", ErrInvalidCollection, where)
	}
	var err error
	deps.ForEach(func(_, d gjson.Result) bool {
		if d.Type != gjson.Number && d.Type != gjson.String {
			err = fmt.Errorf("%w: %s.dependencies entries must be numbers or strings", ErrInvalidCollection, where)
		}
		return err == nil
	})
	return err
}

func checkUnique(list []Task) error {
	seen := make(map[int]bool, len(list))
	for _, t := range list {
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate task id %d", ErrInvalidCollection, t.ID)
		}
		seen[t.ID] = true
		subs := make(map[int]bool, len(t.Subtasks))
		for _, s := range t.Subtasks {
			if subs[s.ID] {
				return fmt.Errorf("%w: duplicate subtask id %d.%d", ErrInvalidCollection, t.ID, s.ID)
			}
			subs[s.ID] = true
		}
	}
	return nil
}

func collectExtra(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra, nil
}

func appendExtra(b []byte, extra map[string]json.RawMessage, known map[string]bool) ([]byte, error) {
	if len(extra) == 0 {
		return b, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// escapePath escapes gjson path metacharacters in a tag name.
func escapePath(s string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(s)
}
