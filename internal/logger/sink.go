package logger

import (
	"context"
	"fmt"
	"time"

	"go-venue/internal/config"
	"go-venue/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry is the record handed from the zap core to the async writer.
type LogEntry struct {
	Level   zapcore.Level
	Message string
	System  string
	Entity  string
	Caller  string
}

type engineLog struct {
	AppID     string    `bson:"app_id"`
	Level     string    `bson:"level"`
	Message   string    `bson:"message"`
	System    string    `bson:"system,omitempty"`
	Entity    string    `bson:"entity,omitempty"`
	Caller    string    `bson:"caller,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// LogSink writes engine log entries to Mongo off the request path.
type LogSink struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

func NewLogSink(db *database.MongodbDB, cfg *config.Config) *LogSink {
	sink := &LogSink{
		db:      db.DB,
		logChan: make(chan LogEntry, 1000),
		appId:   cfg.AppId,
	}

	go sink.drain()

	return sink
}

// Add enqueues an entry; a full buffer drops the entry rather than blocking
// the caller.
func (s *LogSink) Add(entry LogEntry) {
	select {
	case s.logChan <- entry:
	default:
		fmt.Println("engine log buffer full, dropping:", entry.Message)
	}
}

func (s *LogSink) drain() {
	for entry := range s.logChan {
		record := engineLog{
			AppID:     s.appId,
			Level:     entry.Level.String(),
			Message:   entry.Message,
			System:    entry.System,
			Entity:    entry.Entity,
			Caller:    entry.Caller,
			CreatedAt: time.Now().UTC(),
		}
		// Insert failures are ignored so logging can never take the app down.
		s.db.Collection("engine_logs").InsertOne(context.Background(), record)
	}
}

// SinkCore tees warn-and-above entries into the Mongo sink while the wrapped
// core keeps printing to the console.
type SinkCore struct {
	zapcore.Core
	sink *LogSink
}

func NewSinkCore(base zapcore.Core, sink *LogSink) zapcore.Core {
	return &SinkCore{Core: base, sink: sink}
}

func (c *SinkCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= zapcore.WarnLevel {
		var system, entity string
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
			switch f.Key {
			case "system":
				system = f.String
			case "entity_type":
				entity = f.String
			}
		}

		c.sink.Add(LogEntry{
			Level:   entry.Level,
			Message: entry.Message,
			System:  system,
			Entity:  entity,
			Caller:  entry.Caller.Function,
		})
	}

	return c.Core.Write(entry, fields)
}

func (c *SinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
