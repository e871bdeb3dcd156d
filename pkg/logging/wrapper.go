package logging

// Wrapper prefixes every entry with fixed key/value pairs and filters on level
type Wrapper struct {
	Log    SimpleLogger
	Prefix []interface{}
	Level  Level
}

func (w *Wrapper) with(i []interface{}) []interface{} {
	if len(i) == 0 {
		return w.Prefix
	}
	out := make([]interface{}, 0, len(i)+len(w.Prefix))
	out = append(out, i[0])
	out = append(out, w.Prefix...)
	return append(out, i[1:]...)
}

func (w *Wrapper) Println(i ...interface{}) {
	if w.Level > InfoLevel {
		return
	}
	w.Log.Infof(w.with(i)...)
}

func (w *Wrapper) Debugf(i ...interface{}) {
	if w.Level > DebugLevel {
		return
	}
	w.Log.Debugf(w.with(i)...)
}

func (w *Wrapper) Infof(i ...interface{}) {
	if w.Level > InfoLevel {
		return
	}
	w.Log.Infof(w.with(i)...)
}

func (w *Wrapper) Warnf(i ...interface{}) {
	if w.Level > WarnLevel {
		return
	}
	w.Log.Warnf(w.with(i)...)
}

func (w *Wrapper) Errorf(i ...interface{}) {
	w.Log.Errorf(w.with(i)...)
}
