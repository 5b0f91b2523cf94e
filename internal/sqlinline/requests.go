// Package sqlinline holds the inline SQL executed through infra.SQLRunner.
// Every constant starts with a --sql marker line so log output can be
// correlated back to the exact statement.
package sqlinline

const QEnqueueRequest = `--sql c1e3fa65-1d94-4abd-9c46-ddaa8e095750
insert into generation_requests (
  id,
  status,
  modality,
  model,
  variant_count,
  spec_json,
  properties,
  created_at,
  updated_at
)
values (
  gen_random_uuid(),
  'QUEUED',
  $1::text,
  $2::text,
  $3::int,
  $4::jsonb,
  '{}'::jsonb,
  now(),
  now()
)
returning id;
`

const QSelectRequest = `--sql 9b8d1177-0b11-41c8-8835-e0d87b3837e7
select
  id,
  status,
  modality,
  model,
  variant_count,
  spec_json,
  properties,
  created_at,
  updated_at
from generation_requests
where id = $1::uuid
limit 1;
`

// QClaimRequest moves the oldest queued request to RUNNING and hands it to
// exactly one worker. Skip-locked keeps concurrent workers from fighting over
// the same row.
const QClaimRequest = `--sql 358e30e8-bad0-409f-b88e-bf0b90183b66
with next_request as (
    select id
    from generation_requests
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update generation_requests
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_request)
    returning id, modality, model, variant_count, spec_json
)
select id, modality, model, variant_count, spec_json from claimed;
`

const QUpdateRequestStatus = `--sql 7714de2a-935c-41e8-87af-34d2865e984e
update generation_requests
set status = $2::text,
    properties = coalesce($3::jsonb, properties),
    updated_at = now()
where id = $1::uuid;
`
