package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ravenwatch/combatsim/internal/component"
	"github.com/ravenwatch/combatsim/internal/core/ecs"
	"github.com/ravenwatch/combatsim/internal/core/event"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Host is the simulation surface exposed to encounter scripts.
type Host interface {
	SpawnActor(name string, objectID uint32, local bool) ecs.EntityID
	Actor(name string) (ecs.EntityID, bool)
	ApplyCondition(target ecs.EntityID, kind string, duration float64, extend, override bool) (ecs.EntityID, error)
	RemoveCondition(target ecs.EntityID, kind string) (int, error)
	Knockback(target ecs.EntityID, dir component.Vec3, duration float64, canResist bool)
	After(delay float64, fn func() error)
	Omen(path string, pos component.Vec3, rot float32, duration float64) ecs.EntityID
	SetStatus(target ecs.EntityID, statusID uint32, duration float64)
	Emit(ev event.ActionEffect)
	Now() float64
}

// Engine wraps a single gopher-lua VM running encounter scripts.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	host Host
}

// NewEngine creates a Lua VM with the "sim" module bound to host.
func NewEngine(host Host, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, host: host}
	mod := vm.NewTable()
	vm.SetFuncs(mod, map[string]lua.LGFunction{
		"spawn":     e.luaSpawn,
		"actor":     e.luaActor,
		"apply":     e.luaApply,
		"remove":    e.luaRemove,
		"knockback": e.luaKnockback,
		"after":     e.luaAfter,
		"omen":      e.luaOmen,
		"status":    e.luaStatus,
		"action":    e.luaAction,
		"now":       e.luaNow,
		"log":       e.luaLog,
	})
	vm.SetGlobal("sim", mod)
	return e
}

// LoadFile runs a script file, defining its globals.
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs script source, mainly for tests and inline encounters.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

// LoadDir loads all .lua files in a directory in name order. A missing
// directory is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// RunEncounter calls the script's global encounter() function.
func (e *Engine) RunEncounter() error {
	fn := e.vm.GetGlobal("encounter")
	if fn == lua.LNil {
		return fmt.Errorf("lua function encounter not found")
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("run encounter: %w", err)
	}
	return nil
}

// sim.spawn(name, object_id [, local=false]) -> id
func (e *Engine) luaSpawn(L *lua.LState) int {
	id := e.host.SpawnActor(L.CheckString(1), uint32(L.CheckNumber(2)), L.OptBool(3, false))
	L.Push(lEntity(id))
	return 1
}

// sim.actor(name) -> id | nil
func (e *Engine) luaActor(L *lua.LState) int {
	id, ok := e.host.Actor(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lEntity(id))
	return 1
}

// sim.apply(target, kind, duration [, {extend=, override=}]) -> id | nil, err
func (e *Engine) luaApply(L *lua.LState) int {
	target := checkEntity(L, 1)
	kind := L.CheckString(2)
	duration := float64(L.CheckNumber(3))
	opts := L.OptTable(4, L.NewTable())
	id, err := e.host.ApplyCondition(target, kind, duration,
		lua.LVAsBool(opts.RawGetString("extend")),
		lua.LVAsBool(opts.RawGetString("override")))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if id.IsZero() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lEntity(id))
	return 1
}

// sim.remove(target, kind) -> count | nil, err
func (e *Engine) luaRemove(L *lua.LState) int {
	n, err := e.host.RemoveCondition(checkEntity(L, 1), L.CheckString(2))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(n))
	return 1
}

// sim.knockback(target, {x=, y=, z=}, duration [, can_resist=true])
func (e *Engine) luaKnockback(L *lua.LState) int {
	target := checkEntity(L, 1)
	dir := lVec(L.CheckTable(2))
	duration := float64(L.CheckNumber(3))
	canResist := L.OptBool(4, true)
	e.host.Knockback(target, dir, duration, canResist)
	return 0
}

// sim.after(delay, fn) runs fn once delay simulated seconds have passed.
func (e *Engine) luaAfter(L *lua.LState) int {
	delay := float64(L.CheckNumber(1))
	fn := L.CheckFunction(2)
	e.host.After(delay, func() error {
		return e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		})
	})
	return 0
}

// sim.omen(path, {x=, y=, z=}, rotation, duration) -> id
func (e *Engine) luaOmen(L *lua.LState) int {
	path := L.CheckString(1)
	pos := lVec(L.CheckTable(2))
	rot := float32(L.OptNumber(3, 0))
	duration := float64(L.OptNumber(4, 0))
	L.Push(lEntity(e.host.Omen(path, pos, rot, duration)))
	return 1
}

// sim.status(target, status_id, duration)
func (e *Engine) luaStatus(L *lua.LState) int {
	e.host.SetStatus(checkEntity(L, 1), uint32(L.CheckNumber(2)), float64(L.OptNumber(3, 0)))
	return 0
}

// sim.action{source=, target=, action=, effect=, moves=}
func (e *Engine) luaAction(L *lua.LState) int {
	t := L.CheckTable(1)
	e.host.Emit(event.ActionEffect{
		SourceID:        uint32(lInt(t, "source")),
		TargetID:        uint32(lInt(t, "target")),
		ActionID:        uint32(lInt(t, "action")),
		EffectType:      event.EffectType(lStrOr(t, "effect", string(event.EffectNothing))),
		AffectsPosition: lua.LVAsBool(t.RawGetString("moves")),
	})
	return 0
}

func (e *Engine) luaNow(L *lua.LState) int {
	L.Push(lua.LNumber(e.host.Now()))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("script", zap.String("msg", L.CheckString(1)), zap.Float64("t", e.host.Now()))
	return 0
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

func lEntity(id ecs.EntityID) lua.LNumber {
	return lua.LNumber(float64(uint64(id)))
}

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(uint64(L.CheckNumber(n)))
}

func lVec(t *lua.LTable) component.Vec3 {
	return component.Vec3{
		X: float32(lua.LVAsNumber(t.RawGetString("x"))),
		Y: float32(lua.LVAsNumber(t.RawGetString("y"))),
		Z: float32(lua.LVAsNumber(t.RawGetString("z"))),
	}
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStrOr reads a string field from a Lua table, falling back to def.
func lStrOr(t *lua.LTable, key, def string) string {
	if s := lua.LVAsString(t.RawGetString(key)); s != "" {
		return s
	}
	return def
}
