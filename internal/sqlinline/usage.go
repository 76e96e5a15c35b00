package sqlinline

const QInsertUsageEvent = `--sql 1aea4eaf-9ed2-43c6-a308-93a4651652b8
insert into usage_events(id, principal_id, request_id, event_type, success, remaining, created_at)
values (gen_random_uuid(), $1::uuid, nullif($2, '')::uuid, $3::text, $4::boolean, $5::int, now());
`
