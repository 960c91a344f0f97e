package sqlinline

const QCreateRunsTable = `--sql 6211fdc8-b04f-4d86-86c0-0689ef79bd16
create table if not exists media_runs (
  id            text primary key,
  tool          text not null,
  status        text not null,
  progress      int not null default 0,
  result        jsonb,
  error_message text not null default '',
  error_kind    text not null default '',
  created_at    timestamptz not null default now(),
  updated_at    timestamptz not null default now()
);
`

const QCreateRunsUpdatedIndex = `--sql 1cca5a21-5e6e-4e33-adbc-f3c9e64ddc41
create index if not exists media_runs_updated_at_idx on media_runs (updated_at);
`

const QUpsertRun = `--sql f9ce1f3e-51b6-4929-bcb2-443d919564b1
insert into media_runs(id, tool, status, progress, result, error_message, error_kind, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::int, $5::jsonb, $6::text, $7::text, $8::timestamptz, $9::timestamptz)
on conflict (id) do update set
  status        = excluded.status,
  progress      = excluded.progress,
  result        = excluded.result,
  error_message = excluded.error_message,
  error_kind    = excluded.error_kind,
  updated_at    = excluded.updated_at
where media_runs.updated_at <= excluded.updated_at;
`

const QSelectRun = `--sql cd107ccd-ec1a-4d21-86be-cf1e8dc1fb29
select id, tool, status, progress, result, error_message, error_kind, created_at, updated_at
from media_runs
where id = $1::text
limit 1;
`

const QDeleteRun = `--sql f27bc6b1-8250-4e5a-9fe0-8d54b90e5f6b
delete from media_runs where id = $1::text;
`

const QPruneRuns = `--sql 3ed0b5ff-c108-4349-a46f-17b723623a66
delete from media_runs where updated_at < $1::timestamptz;
`
