package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/iotcore/pkg/json"
)

// Operation names accepted by FailOperation and Calls
const (
	OpListThings              = "ListThings"
	OpListThingTypes          = "ListThingTypes"
	OpListThingGroups         = "ListThingGroups"
	OpListThingGroupsForThing = "ListThingGroupsForThing"
	OpCreateThing             = "CreateThing"
	OpDeleteThing             = "DeleteThing"
	OpGetThingShadow          = "GetThingShadow"
	OpUpdateThingShadow       = "UpdateThingShadow"
)

const fakeAccount = "123456789012"

// FakeThing is a thing held by FakeIoT
type FakeThing struct {
	Name       string
	TypeName   string
	Attributes map[string]string
	Version    int64
	Groups     []string
}

// FakeThingType is a thing type held by FakeIoT
type FakeThingType struct {
	Name        string
	Description string
	Searchable  []string
	Deprecated  bool
	Created     time.Time
}

type failure struct {
	status int
	code   string
}

// FakeIoT serves the subset of the registry and shadow REST APIs the connector
// calls. Pagination honors maxResults and hands out numeric nextTokens.
type FakeIoT struct {
	Region string

	mu       sync.Mutex
	server   *httptest.Server
	things   []*FakeThing
	types    []FakeThingType
	groups   []string
	shadows  map[string][]byte
	failures map[string]failure
	calls    map[string]int
}

// NewFakeIoT starts a fake registry. It is closed when the test completes.
func NewFakeIoT(t interface{ Cleanup(func()) }) *FakeIoT {
	f := &FakeIoT{
		Region:   "eu-central-1",
		shadows:  make(map[string][]byte),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /things", f.listThings)
	mux.HandleFunc("POST /things/{name}", f.createThing)
	mux.HandleFunc("DELETE /things/{name}", f.deleteThing)
	mux.HandleFunc("GET /things/{name}/thing-groups", f.listGroupsForThing)
	mux.HandleFunc("GET /things/{name}/shadow", f.getShadow)
	mux.HandleFunc("POST /things/{name}/shadow", f.updateShadow)
	mux.HandleFunc("GET /thing-types", f.listThingTypes)
	mux.HandleFunc("GET /thing-groups", f.listThingGroups)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL is the endpoint to pass as both url and data_url
func (f *FakeIoT) URL() string {
	return f.server.URL
}

// AddThing registers a thing; Version defaults to 1.
func (f *FakeIoT) AddThing(thing FakeThing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if thing.Version == 0 {
		thing.Version = 1
	}
	f.things = append(f.things, &thing)
	for _, g := range thing.Groups {
		f.addGroupLocked(g)
	}
}

// AddThingType registers a thing type
func (f *FakeIoT) AddThingType(tt FakeThingType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, tt)
}

// AddGroup registers a thing group
func (f *FakeIoT) AddGroup(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addGroupLocked(name)
}

func (f *FakeIoT) addGroupLocked(name string) {
	for _, g := range f.groups {
		if g == name {
			return
		}
	}
	f.groups = append(f.groups, name)
	sort.Strings(f.groups)
}

// SetShadow stores a shadow document; an empty shadowName is the classic shadow.
func (f *FakeIoT) SetShadow(thing, shadowName string, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shadows[shadowKey(thing, shadowName)] = []byte(doc)
}

// Shadow returns a stored shadow document
func (f *FakeIoT) Shadow(thing, shadowName string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.shadows[shadowKey(thing, shadowName)]
	return string(doc), ok
}

// HasThing reports whether a thing exists
func (f *FakeIoT) HasThing(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(name) >= 0
}

// Thing returns a copy of a stored thing
func (f *FakeIoT) Thing(name string) (FakeThing, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.findLocked(name); i >= 0 {
		return *f.things[i], true
	}
	return FakeThing{}, false
}

// FailOperation makes every call to op fail with status and error code. A key
// of the form "GetThingShadow/sensor-1" limits the failure to one thing.
func (f *FakeIoT) FailOperation(op string, status int, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = failure{status: status, code: code}
}

// Calls returns how many requests op received
func (f *FakeIoT) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func shadowKey(thing, shadowName string) string {
	return thing + "|" + shadowName
}

func (f *FakeIoT) findLocked(name string) int {
	for i, t := range f.things {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// begin counts the call and reports whether an injected failure was written.
func (f *FakeIoT) begin(w http.ResponseWriter, op, thing string) bool {
	f.mu.Lock()
	f.calls[op]++
	fail, ok := f.failures[op+"/"+thing]
	if !ok {
		fail, ok = f.failures[op]
	}
	f.mu.Unlock()

	if ok {
		writeError(w, fail.status, fail.code, op+" failed")
	}
	return ok
}

func (f *FakeIoT) arn(kind, name string) string {
	return "arn:aws:iot:" + f.Region + ":" + fakeAccount + ":" + kind + "/" + name
}

// paginate slices n items by the maxResults and nextToken query parameters
func paginate(r *http.Request, n int) (start, end int, next string) {
	q := r.URL.Query()
	start, _ = strconv.Atoi(q.Get("nextToken"))
	size, _ := strconv.Atoi(q.Get("maxResults"))
	if size <= 0 {
		size = 25
	}
	if start > n {
		start = n
	}
	end = start + size
	if end >= n {
		return start, n, ""
	}
	return start, end, strconv.Itoa(end)
}

func (f *FakeIoT) listThings(w http.ResponseWriter, r *http.Request) {
	if f.begin(w, OpListThings, "") {
		return
	}
	typeName := r.URL.Query().Get("thingTypeName")

	f.mu.Lock()
	var matched []map[string]interface{}
	for _, t := range f.things {
		if typeName != "" && t.TypeName != typeName {
			continue
		}
		item := map[string]interface{}{
			"thingName": t.Name,
			"thingArn":  f.arn("thing", t.Name),
			"version":   t.Version,
		}
		if t.TypeName != "" {
			item["thingTypeName"] = t.TypeName
		}
		if t.Attributes != nil {
			item["attributes"] = t.Attributes
		}
		matched = append(matched, item)
	}
	f.mu.Unlock()

	start, end, next := paginate(r, len(matched))
	writePage(w, "things", matched[start:end], next)
}

func (f *FakeIoT) listThingTypes(w http.ResponseWriter, r *http.Request) {
	if f.begin(w, OpListThingTypes, "") {
		return
	}
	name := r.URL.Query().Get("thingTypeName")

	f.mu.Lock()
	var matched []map[string]interface{}
	for _, tt := range f.types {
		if name != "" && tt.Name != name {
			continue
		}
		props := map[string]interface{}{}
		if tt.Description != "" {
			props["thingTypeDescription"] = tt.Description
		}
		if len(tt.Searchable) > 0 {
			props["searchableAttributes"] = tt.Searchable
		}
		meta := map[string]interface{}{"deprecated": tt.Deprecated}
		if !tt.Created.IsZero() {
			meta["creationDate"] = float64(tt.Created.UnixMilli()) / 1000
		}
		matched = append(matched, map[string]interface{}{
			"thingTypeName":       tt.Name,
			"thingTypeArn":        f.arn("thingtype", tt.Name),
			"thingTypeProperties": props,
			"thingTypeMetadata":   meta,
		})
	}
	f.mu.Unlock()

	start, end, next := paginate(r, len(matched))
	writePage(w, "thingTypes", matched[start:end], next)
}

func (f *FakeIoT) listThingGroups(w http.ResponseWriter, r *http.Request) {
	if f.begin(w, OpListThingGroups, "") {
		return
	}
	prefix := r.URL.Query().Get("namePrefixFilter")

	f.mu.Lock()
	var matched []map[string]interface{}
	for _, g := range f.groups {
		if strings.HasPrefix(g, prefix) {
			matched = append(matched, f.groupRef(g))
		}
	}
	f.mu.Unlock()

	start, end, next := paginate(r, len(matched))
	writePage(w, "thingGroups", matched[start:end], next)
}

func (f *FakeIoT) listGroupsForThing(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if f.begin(w, OpListThingGroupsForThing, name) {
		return
	}

	f.mu.Lock()
	i := f.findLocked(name)
	if i < 0 {
		f.mu.Unlock()
		writeError(w, http.StatusNotFound, "ResourceNotFoundException", "Thing "+name+" cannot be found.")
		return
	}
	matched := make([]map[string]interface{}, 0, len(f.things[i].Groups))
	for _, g := range f.things[i].Groups {
		matched = append(matched, f.groupRef(g))
	}
	f.mu.Unlock()

	start, end, next := paginate(r, len(matched))
	writePage(w, "thingGroups", matched[start:end], next)
}

func (f *FakeIoT) groupRef(name string) map[string]interface{} {
	return map[string]interface{}{"groupName": name, "groupArn": f.arn("thinggroup", name)}
}

func (f *FakeIoT) createThing(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if f.begin(w, OpCreateThing, name) {
		return
	}

	var body struct {
		ThingTypeName string `json:"thingTypeName"`
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequestException", err.Error())
			return
		}
	}

	f.mu.Lock()
	if f.findLocked(name) >= 0 {
		f.mu.Unlock()
		writeError(w, http.StatusConflict, "ResourceAlreadyExistsException", "Thing "+name+" already exists")
		return
	}
	f.things = append(f.things, &FakeThing{Name: name, TypeName: body.ThingTypeName, Version: 1})
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"thingName": name,
		"thingArn":  f.arn("thing", name),
		"thingId":   uuid.NewString(),
	})
}

func (f *FakeIoT) deleteThing(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if f.begin(w, OpDeleteThing, name) {
		return
	}

	f.mu.Lock()
	i := f.findLocked(name)
	if i < 0 {
		f.mu.Unlock()
		writeError(w, http.StatusNotFound, "ResourceNotFoundException", "Thing "+name+" cannot be found.")
		return
	}
	f.things = append(f.things[:i], f.things[i+1:]...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (f *FakeIoT) getShadow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if f.begin(w, OpGetThingShadow, name) {
		return
	}

	doc, ok := f.Shadow(name, r.URL.Query().Get("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "ResourceNotFoundException", "No shadow exists with name: '"+name+"'")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (f *FakeIoT) updateShadow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if f.begin(w, OpUpdateThingShadow, name) {
		return
	}

	doc, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(doc) {
		writeError(w, http.StatusBadRequest, "InvalidRequestException", "Payload contains invalid json")
		return
	}
	f.SetShadow(name, r.URL.Query().Get("name"), string(doc))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func writePage(w http.ResponseWriter, key string, items []map[string]interface{}, next string) {
	if items == nil {
		items = []map[string]interface{}{}
	}
	body := map[string]interface{}{key: items}
	if next != "" {
		body["nextToken"] = next
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("X-Amzn-Errortype", code)
	writeJSON(w, status, map[string]string{"message": message})
}
