package sqlinline

const QInsertAsset = `--sql db50ba06-6ebd-4b48-aacf-a9c375a358bf
insert into generated_assets (
  id,
  request_id,
  variant_index,
  platform,
  aspect_ratio,
  storage_key,
  mime,
  bytes,
  width,
  height,
  attempts,
  threshold_met,
  corrected,
  properties,
  created_at
)
values (
  gen_random_uuid(),
  $1::uuid,
  $2::int,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::bigint,
  $8::int,
  $9::int,
  $10::int,
  $11::boolean,
  $12::boolean,
  coalesce($13::jsonb, '{}'::jsonb),
  now()
)
returning id;
`

const QListAssets = `--sql 488f64a7-914b-46e1-8426-50d78cb6633f
select
  id,
  request_id,
  variant_index,
  platform,
  aspect_ratio,
  storage_key,
  mime,
  bytes,
  width,
  height,
  attempts,
  threshold_met,
  corrected,
  properties,
  created_at
from generated_assets
where ($1::uuid is null or request_id = $1::uuid)
order by created_at desc, variant_index asc
limit $2::int offset $3::int;
`

const QSelectAssetByID = `--sql 5d4aafb2-3404-4e78-a918-4fd22dca049f
select
  id,
  request_id,
  variant_index,
  platform,
  aspect_ratio,
  storage_key,
  mime,
  bytes,
  width,
  height,
  attempts,
  threshold_met,
  corrected,
  properties,
  created_at
from generated_assets
where id = $1::uuid
limit 1;
`

const QSelectRequestAssets = `--sql e4725387-5c55-43d0-a740-e1099eac5cc5
select
  id,
  request_id,
  variant_index,
  platform,
  aspect_ratio,
  storage_key,
  mime,
  bytes,
  width,
  height,
  attempts,
  threshold_met,
  corrected,
  properties,
  created_at
from generated_assets
where request_id = $1::uuid
order by variant_index asc, created_at asc;
`
