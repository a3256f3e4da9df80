package log

import "go.uber.org/zap"

// Field helpers for keys shared by the fs packages.

func Path(p string) zap.Field { return zap.String("path", p) }

func Label(l string) zap.Field { return zap.String("label", l) }

func Op(op string) zap.Field { return zap.String("op", op) }
