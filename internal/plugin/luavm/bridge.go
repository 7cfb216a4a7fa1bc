package luavm

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ToGo converts a Lua value to a Go value. Tables with contiguous 1..n
// integer keys become []any, other tables become map[string]any. Functions
// and other non-data values convert to nil.
func ToGo(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}

		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			// Break circular references.
			return nil
		}

		visited[v] = true

		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	maxN := 0
	count := 0

	t.ForEach(func(k, _ lua.LValue) {
		count++

		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			isArray = false

			return
		}

		if int(kn) > maxN {
			maxN = int(kn)
		}
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGo(t.RawGetInt(i), visited)
		}

		return arr
	}

	m := make(map[string]any, count)

	t.ForEach(func(k, v lua.LValue) {
		var key string

		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}

		m[key] = toGo(v, visited)
	})

	return m
}

// ToLua converts a Go value to a Lua value.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []string:
		tbl := L.NewTable()
		for _, el := range val {
			tbl.Append(lua.LString(el))
		}

		return tbl
	case []any:
		tbl := L.NewTable()
		for _, el := range val {
			tbl.Append(ToLua(L, el))
		}

		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, el := range val {
			tbl.RawSetString(k, ToLua(L, el))
		}

		return tbl
	case map[string]string:
		tbl := L.NewTable()
		for k, el := range val {
			tbl.RawSetString(k, lua.LString(el))
		}

		return tbl
	default:
		// Unknown kinds cross the boundary as their string form rather
		// than failing the call.
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
